package crypto

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rei-network/executive/helper/hex"
	"github.com/rei-network/executive/types"
)

func TestKeyEncoding(t *testing.T) {
	t.Parallel()

	for i := 0; i < 10; i++ {
		priv, err := GenerateECDSAKey()
		require.NoError(t, err)

		priv0, err := BytesToECDSAPrivateKey([]byte(hex.EncodeToHex(priv.D.FillBytes(make([]byte, 32)))))
		require.NoError(t, err)

		assert.Equal(t, 0, priv.D.Cmp(priv0.D))
		assert.Equal(t, PubKeyToAddress(&priv.PublicKey), PubKeyToAddress(&priv0.PublicKey))
	}
}

func TestKeccak256Hash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, types.EmptyCodeHash, Keccak256Hash(nil))
	assert.Equal(t, types.BytesToHash(Keccak256([]byte{0x01}, []byte{0x02})), Keccak256Hash([]byte{0x01, 0x02}))
}

func TestPubKeyToAddress(t *testing.T) {
	t.Parallel()

	cases := []struct {
		key     string
		address string
	}{
		{
			"0x4646464646464646464646464646464646464646464646464646464646464646",
			"0x9d8A62f656a8d1615C1294fd71e9CFb3E4855A4F",
		},
		{
			"0xd8ca4883bbf62202904e402750d593a297b5640dea80b6d5b239c5a9902662c0",
			"0x3289621709F5B35D09B4335E129907aC367A0593",
		},
	}

	for _, c := range cases {
		priv, err := BytesToECDSAPrivateKey([]byte(c.key))
		require.NoError(t, err)

		assert.Equal(t, types.StringToAddress(c.address), PubKeyToAddress(&priv.PublicKey))
	}

	_, err := BytesToECDSAPrivateKey([]byte("0x1234"))
	assert.Error(t, err)
}

func TestCreateAddress(t *testing.T) {
	t.Parallel()

	sender := types.StringToAddress("0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0")

	expected := []string{
		"0xcd234a471b72ba2f1ccf0a70fcaba648a5eecd8d",
		"0x343c43a37d37dff08ae8c4a11544c718abb4fcf8",
		"0xf778b86fa74e846c4f0a1fbd1335fe81c00a0c91",
	}

	for nonce, addr := range expected {
		assert.Equal(t, addr, strings.ToLower(CreateAddress(sender, uint64(nonce)).String()))
	}
}

func TestCreate2(t *testing.T) {
	t.Parallel()

	cases := []struct {
		address  string
		salt     string
		initCode string
		result   string
	}{
		{
			"0x0000000000000000000000000000000000000000",
			"0x0000000000000000000000000000000000000000000000000000000000000000",
			"0x00",
			"0x4D1A2e2bB4F88F0250f26Ffff098B0b30B26BF38",
		},
		{
			"0xdeadbeef00000000000000000000000000000000",
			"0x0000000000000000000000000000000000000000000000000000000000000000",
			"0x00",
			"0xB928f69Bb1D91Cd65274e3c79d8986362984fDA3",
		},
		{
			"0xdeadbeef00000000000000000000000000000000",
			"0x000000000000000000000000feed000000000000000000000000000000000000",
			"0x00",
			"0xD04116cDd17beBE565EB2422F2497E06cC1C9833",
		},
		{
			"0x0000000000000000000000000000000000000000",
			"0x0000000000000000000000000000000000000000000000000000000000000000",
			"0xdeadbeef",
			"0x70f2b2914A2a4b783FaEFb75f459A580616Fcb5e",
		},
		{
			"0x00000000000000000000000000000000deadbeef",
			"0x00000000000000000000000000000000000000000000000000000000cafebabe",
			"0xdeadbeef",
			"0x60f3f640a8508fC6a86d45DF051962668E1e8AC7",
		},
		{
			"0x00000000000000000000000000000000deadbeef",
			"0x00000000000000000000000000000000000000000000000000000000cafebabe",
			"0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
			"0x1d8bfDC5D46DC4f61D6b6115972536eBE6A8854C",
		},
		{
			"0x0000000000000000000000000000000000000000",
			"0x0000000000000000000000000000000000000000000000000000000000000000",
			"0x",
			"0xE33C0C7F7df4809055C3ebA6c09CFe4BaF1BD9e0",
		},
	}

	for _, c := range cases {
		c := c

		t.Run("", func(t *testing.T) {
			t.Parallel()

			address := types.StringToAddress(c.address)
			initCode := hex.MustDecodeHex(c.initCode)

			saltRaw := hex.MustDecodeHex(c.salt)
			if len(saltRaw) != 32 {
				t.Fatal("Salt length must be 32 bytes")
			}

			salt := [32]byte{}
			copy(salt[:], saltRaw[:])

			res := CreateAddress2(address, salt, initCode)
			assert.Equal(t, c.result, res.String())
		})
	}
}

func TestValidateSignatureValues(t *testing.T) {
	t.Parallel()

	one := big.NewInt(1)
	zero := big.NewInt(0)

	limit := secp256k1N
	limitMinus1 := new(big.Int).Sub(secp256k1N, one)
	halfPlus1 := new(big.Int).Add(secp256k1NHalf, one)

	cases := []struct {
		lowS bool
		v         byte
		r         *big.Int
		s         *big.Int
		res       bool
	}{
		// correct v, r, s
		{v: 0, r: one, s: one, res: true},
		{v: 1, r: one, s: one, res: true},
		// incorrect v, correct r, s.
		{v: 2, r: one, s: one, res: false},
		{v: 3, r: one, s: one, res: false},
		// incorrect v, incorrect/correct r, s.
		{v: 2, r: zero, s: zero, res: false},
		{v: 2, r: zero, s: one, res: false},
		{v: 2, r: one, s: zero, res: false},
		{v: 2, r: one, s: one, res: false},
		// correct v, incorrent r, s
		{v: 0, r: zero, s: zero, res: false},
		{v: 0, r: zero, s: one, res: false},
		{v: 0, r: one, s: zero, res: false},
		{v: 1, r: zero, s: zero, res: false},
		{v: 1, r: zero, s: one, res: false},
		{v: 1, r: one, s: zero, res: false},
		// incorrect r, s max limit
		{v: 0, r: limit, s: limit, res: false},
		{v: 0, r: limit, s: limitMinus1, res: false},
		{v: 0, r: limitMinus1, s: limit, res: false},
		// correct v, r, s max limit
		{v: 0, r: limitMinus1, s: limitMinus1, res: true},
		// low s
		{lowS: true, v: 0, r: one, s: secp256k1NHalf, res: true},
		{lowS: true, v: 0, r: one, s: halfPlus1, res: false},
		{lowS: false, v: 0, r: one, s: halfPlus1, res: true},
	}

	for _, c := range cases {
		found := ValidateSignatureValues(c.v, c.r, c.s, c.lowS)
		assert.Equal(t, c.res, found)
	}
}

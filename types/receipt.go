package types

import (
	"fmt"

	goHex "encoding/hex"

	"github.com/rei-network/executive/helper/hex"
	"github.com/rei-network/executive/helper/keccak"
	"github.com/umbracle/fastrlp"
)

type ReceiptStatus uint64

const (
	ReceiptFailed ReceiptStatus = iota
	ReceiptSuccess
)

type Receipts []*Receipt

// Receipt carries either a status (from Byzantium onward) or the
// intermediate state root.
type Receipt struct {
	Root              Hash           `json:"root"`
	CumulativeGasUsed uint64         `json:"cumulativeGasUsed"`
	LogsBloom         Bloom          `json:"logsBloom"`
	Logs              []*Log         `json:"logs"`
	Status            *ReceiptStatus `json:"status,omitempty"`

	// only kept in memory
	TxHash          Hash     `json:"transactionHash"`
	TxType          TxType   `json:"type"`
	ContractAddress *Address `json:"contractAddress,omitempty"`
	GasUsed         uint64   `json:"gasUsed"`
}

func (r *Receipt) SetStatus(s ReceiptStatus) {
	r.Status = &s
}

// Succeeded reports whether the receipt carries a success status
func (r *Receipt) Succeeded() bool {
	return r.Status != nil && *r.Status == ReceiptSuccess
}

func (r *Receipt) SetContractAddress(contractAddress Address) {
	r.ContractAddress = &contractAddress
}

type Log struct {
	Address Address  `json:"address"`
	Topics  []Hash   `json:"topics"`
	Data    HexBytes `json:"data"`
}

// MarshalRLP returns the consensus encoding of the receipt. Typed receipts
// are prefixed with their transaction type.
func (r *Receipt) MarshalRLP() []byte {
	var dst []byte
	if r.TxType != LegacyTx {
		dst = append(dst, byte(r.TxType))
	}

	return MarshalRLPTo(r.MarshalRLPWith, dst)
}

func (r *Receipt) MarshalRLPWith(a *fastrlp.Arena) *fastrlp.Value {
	vv := a.NewArray()

	if r.Status != nil {
		vv.Set(a.NewUint(uint64(*r.Status)))
	} else {
		vv.Set(a.NewCopyBytes(r.Root[:]))
	}

	vv.Set(a.NewUint(r.CumulativeGasUsed))
	vv.Set(a.NewCopyBytes(r.LogsBloom[:]))
	vv.Set(r.MarshalLogsWith(a))

	return vv
}

// MarshalLogsWith marshals the logs of the receipt to RLP with a specific fastrlp.Arena
func (r *Receipt) MarshalLogsWith(a *fastrlp.Arena) *fastrlp.Value {
	if len(r.Logs) == 0 {
		// There are no receipts, write the RLP null array entry
		return a.NewNullArray()
	}

	logs := a.NewArray()

	for _, l := range r.Logs {
		log := a.NewArray()
		log.Set(a.NewCopyBytes(l.Address.Bytes()))

		topics := a.NewArray()
		for _, t := range l.Topics {
			topics.Set(a.NewCopyBytes(t.Bytes()))
		}

		log.Set(topics)
		log.Set(a.NewCopyBytes(l.Data))
		logs.Set(log)
	}

	return logs
}

func (r *Receipt) UnmarshalRLP(input []byte) error {
	r.TxType = LegacyTx

	if len(input) > 0 && input[0] < typedTxThreshold {
		r.TxType = TxType(input[0])
		input = input[1:]
	}

	return UnmarshalRlp(r.unmarshalRLPFrom, input)
}

func (r *Receipt) unmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := v.GetElems()
	if err != nil {
		return err
	}

	if len(elems) != 4 {
		return fmt.Errorf("expected 4 elements but found %d", len(elems))
	}

	// root or status
	buf, err := elems[0].Bytes()
	if err != nil {
		return err
	}

	r.Status = nil

	switch size := len(buf); size {
	case HashLength:
		copy(r.Root[:], buf)
	case 0:
		r.SetStatus(ReceiptFailed)
	case 1:
		r.SetStatus(ReceiptStatus(buf[0]))
	default:
		return fmt.Errorf("bad root/status size %d", size)
	}

	if r.CumulativeGasUsed, err = elems[1].GetUint64(); err != nil {
		return err
	}

	if _, err = elems[2].GetBytes(r.LogsBloom[:0], BloomByteLength); err != nil {
		return err
	}

	logsElems, _ := elems[3].GetElems()
	r.Logs = make([]*Log, 0, len(logsElems))

	for _, elem := range logsElems {
		log := &Log{}

		subElems, err := elem.GetElems()
		if err != nil {
			return err
		}

		if len(subElems) != 3 {
			return fmt.Errorf("bad log elems")
		}

		if err := subElems[0].GetAddr(log.Address[:]); err != nil {
			return err
		}

		topicElems, err := subElems[1].GetElems()
		if err != nil && subElems[1].Type() != fastrlp.TypeArrayNull {
			return err
		}

		log.Topics = make([]Hash, len(topicElems))
		for indx, topic := range topicElems {
			if err := topic.GetHash(log.Topics[indx][:]); err != nil {
				return err
			}
		}

		if log.Data, err = subElems[2].GetBytes(nil); err != nil {
			return err
		}

		r.Logs = append(r.Logs, log)
	}

	return nil
}

const BloomByteLength = 256

type Bloom [BloomByteLength]byte

func (b *Bloom) UnmarshalText(input []byte) error {
	input = input[2:]
	if _, err := goHex.Decode(b[:], input); err != nil {
		return err
	}

	return nil
}

func (b Bloom) String() string {
	return hex.EncodeToHex(b[:])
}

func (b Bloom) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// CreateBloom creates a new bloom filter from a set of receipts
func CreateBloom(receipts []*Receipt) (b Bloom) {
	h := keccak.DefaultKeccakPool.Get()

	for _, receipt := range receipts {
		for _, log := range receipt.Logs {
			b.setEncode(h, log.Address[:])

			for _, topic := range log.Topics {
				b.setEncode(h, topic[:])
			}
		}
	}

	keccak.DefaultKeccakPool.Put(h)

	return
}

// LogsBloom creates the bloom filter of a single set of logs
func LogsBloom(logs []*Log) Bloom {
	return CreateBloom([]*Receipt{{Logs: logs}})
}

func (b *Bloom) setEncode(hasher *keccak.Keccak, h []byte) {
	hasher.Reset()
	hasher.Write(h)
	buf := hasher.Read()

	for i := 0; i < 6; i += 2 {
		byteLocation, bitLocation := bloomBit(buf, i)
		b[byteLocation] |= 1 << bitLocation
	}
}

// IsLogInBloom checks if the log has a possible presence in the bloom filter
func (b *Bloom) IsLogInBloom(log *Log) bool {
	hasher := keccak.DefaultKeccakPool.Get()
	defer keccak.DefaultKeccakPool.Put(hasher)

	if !b.isByteArrPresent(hasher, log.Address.Bytes()) {
		return false
	}

	for _, topic := range log.Topics {
		if !b.isByteArrPresent(hasher, topic.Bytes()) {
			return false
		}
	}

	return true
}

func (b *Bloom) isByteArrPresent(hasher *keccak.Keccak, data []byte) bool {
	hasher.Reset()
	hasher.Write(data)
	buf := hasher.Read()

	for i := 0; i < 6; i += 2 {
		byteLocation, bitLocation := bloomBit(buf, i)
		if b[byteLocation]&(1<<bitLocation) == 0 {
			return false
		}
	}

	return true
}

// bloomBit maps the i-th pair of hash bytes to a bit of the 2048 bit filter
func bloomBit(buf []byte, i int) (uint, uint) {
	bit := (uint(buf[i+1]) + (uint(buf[i]) << 8)) & 2047

	return BloomByteLength - 1 - bit/8, bit % 8
}

package command

import (
	"fmt"
	"io"
	"os"
)

type CLIOutput struct {
	commonOutputFormatter

	stdout io.Writer
	stderr io.Writer
}

func newCLIOutput() *CLIOutput {
	return &CLIOutput{stdout: os.Stdout, stderr: os.Stderr}
}

func (cli *CLIOutput) WriteOutput() {
	if cli.errorOutput != nil {
		_, _ = fmt.Fprintln(cli.stderr, cli.getErrorOutput())

		return
	}

	if cli.commandOutput == nil {
		return
	}

	_, _ = fmt.Fprintln(cli.stdout, cli.getCommandOutput())
}

func (cli *CLIOutput) getErrorOutput() string {
	return cli.errorOutput.Error()
}

func (cli *CLIOutput) getCommandOutput() string {
	return cli.commandOutput.GetOutput()
}

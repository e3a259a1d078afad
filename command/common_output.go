package command

import "bytes"

type commonOutputFormatter struct {
	errorOutput   error
	commandOutput CommandResult
}

func (c *commonOutputFormatter) SetError(err error) {
	c.errorOutput = err
}

func (c *commonOutputFormatter) SetCommandResult(result CommandResult) {
	c.commandOutput = result
}

// Results is a list of command results printed one after the other
type Results []CommandResult

func (r Results) GetOutput() string {
	var buffer bytes.Buffer

	for _, res := range r {
		buffer.WriteString(res.GetOutput())
	}

	return buffer.String()
}

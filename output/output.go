package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Printer interface for outputting strings and stringers
type Printer interface {
	Print(str string)
	Printf(format string, a ...any) Printer
}

// writer implements Printer for real output
type writer struct {
	w io.Writer
}

func (w *writer) Print(str string) {
	fmt.Fprint(w.w, str)
}

func (w *writer) Printf(format string, a ...any) Printer {
	fmt.Fprintf(w.w, format, a...)
	return w
}

// New creates a printer that outputs to the given io.Writer
func New(w io.Writer) Printer {
	return &writer{w: w}
}

// CapturedOutput is a printer spy for testing
type CapturedOutput struct {
	printed []string
	lock    sync.Mutex
}

func (co *CapturedOutput) Print(str string) {
	co.lock.Lock()
	defer co.lock.Unlock()
	co.printed = append(co.printed, str)
}

func (co *CapturedOutput) Printf(format string, a ...any) Printer {
	co.lock.Lock()
	defer co.lock.Unlock()
	co.printed = append(co.printed, fmt.Sprintf(format, a...))
	return co
}

// Lines returns everything printed so far.
func (co *CapturedOutput) Lines() []string {
	co.lock.Lock()
	defer co.lock.Unlock()
	return append([]string(nil), co.printed...)
}

func (co *CapturedOutput) String() string {
	return strings.Join(co.Lines(), "")
}

// Purge drops everything captured so far.
func (co *CapturedOutput) Purge() {
	co.lock.Lock()
	defer co.lock.Unlock()
	co.printed = nil
}

func MockPrinter() *CapturedOutput {
	return &CapturedOutput{}
}

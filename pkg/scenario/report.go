package scenario

import (
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/dnachain/dna-smoke/pkg/logger"
)

// StepStatus is the result of one scenario step
type StepStatus string

const (
	StepDone    StepStatus = "done"
	StepSkipped StepStatus = "skipped"
	StepFailed  StepStatus = "failed"
)

// Step is one executed scenario step
type Step struct {
	Index   int
	Name    string
	Role    logger.Role
	Status  StepStatus
	TxHash  common.Hash
	Block   common.Hash
	Detail  string
	Elapsed time.Duration
}

// FormatBalance renders base units as whole tokens, e.g. 12,345.6789 DNA
func FormatBalance(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0 DNA"
	}
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(new(big.Int).Abs(amount), unit, new(big.Int))

	s := humanize.BigComma(whole)
	if amount.Sign() < 0 {
		s = "-" + s
	}
	if decimals > 0 && frac.Sign() != 0 {
		f := frac.String()
		f = strings.Repeat("0", decimals-len(f)) + f
		s += "." + strings.TrimRight(f, "0")
	}
	return s + " DNA"
}

func shortHash(h common.Hash) string {
	if h == (common.Hash{}) {
		return "-"
	}
	hex := h.Hex()
	return hex[:10] + "…" + hex[len(hex)-6:]
}

// WriteReport prints the executed steps as a table
func WriteReport(w io.Writer, scenario string, steps []Step) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	t.SetTitle(scenario)
	t.AppendHeader(table.Row{"#", "Step", "Role", "Status", "Tx", "Block", "Elapsed", "Detail"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, WidthMax: 60},
	})

	var done, skipped, failed int
	for _, s := range steps {
		switch s.Status {
		case StepDone:
			done++
		case StepSkipped:
			skipped++
		case StepFailed:
			failed++
		}
		t.AppendRow(table.Row{
			s.Index, s.Name, s.Role.String(), string(s.Status),
			shortHash(s.TxHash), shortHash(s.Block), s.Elapsed.Round(time.Millisecond), s.Detail,
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d done, %d skipped, %d failed", done, skipped, failed)})
	t.Render()
}

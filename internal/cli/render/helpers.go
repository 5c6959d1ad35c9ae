package render

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
)

var (
	headerStyle  = color.New(color.Bold, color.FgHiWhite)
	addressStyle = color.New(color.FgWhite)
	faintStyle   = color.New(color.Faint)
	okStyle      = color.New(color.FgGreen)
	failStyle    = color.New(color.FgRed)
	warnStyle    = color.New(color.FgYellow)
)

// FormatError formats an error message with the error icon
func FormatError(message string) string {
	// Keep only the innermost message of an error chain
	parts := strings.Split(message, ": ")
	msg := parts[len(parts)-1]
	if len(msg) > 0 {
		msg = strings.ToUpper(msg[:1]) + msg[1:]
	}
	return failStyle.Sprintf("❌ %s", msg)
}

// FormatSuccess formats a success message with the success icon
func FormatSuccess(message string) string {
	return okStyle.Sprintf("✅ %s", message)
}

// FormatWarning formats a warning message with the warning icon
func FormatWarning(message string) string {
	return warnStyle.Sprintf("⚠️  %s", message)
}

// JSON writes v as indented JSON
func JSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatEther renders wei as a decimal ether amount
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -18).String()
}

func shortAddress(addr common.Address) string {
	hex := addr.Hex()
	return hex[:6] + "…" + hex[len(hex)-4:]
}

func formatAddress(addr common.Address) string {
	if addr == (common.Address{}) {
		return faintStyle.Sprint("-")
	}
	return addressStyle.Sprint(addr.Hex())
}

func check(ok bool) string {
	if ok {
		return okStyle.Sprint("✓")
	}
	return failStyle.Sprint("✗")
}

// newTable returns a borderless table in the CLI's house style
func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.Style().Options.SeparateRows = false
	t.Style().Box = table.BoxStyle{
		PaddingLeft:      " ",
		PaddingRight:     "  ",
		MiddleHorizontal: "─",
		MiddleSeparator:  "─",
	}
	t.Style().Format.Header = 0
	return t
}

func sectionHeader(out io.Writer, format string, args ...any) {
	fmt.Fprintln(out, headerStyle.Sprintf(format, args...))
}

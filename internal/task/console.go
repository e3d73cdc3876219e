package task

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ConsoleObserver prints task lifecycle lines.
type ConsoleObserver struct {
	w       io.Writer
	name    lipgloss.Style
	elapsed lipgloss.Style
	failed  lipgloss.Style
}

// NewConsoleObserver writes to w, coloured when w is a terminal.
func NewConsoleObserver(w io.Writer) *ConsoleObserver {
	r := lipgloss.NewRenderer(w)
	return &ConsoleObserver{
		w:       w,
		name:    r.NewStyle().Foreground(lipgloss.Color("6")),
		elapsed: r.NewStyle().Foreground(lipgloss.Color("5")),
		failed:  r.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

// OnStart prints "Running '<task>' task...". Group tasks stay silent.
func (o *ConsoleObserver) OnStart(t *Task) {
	if t.Fn == nil {
		return
	}
	fmt.Fprintf(o.w, "\nRunning '%s' task...\n", o.name.Render(t.Name))
}

// OnFinish prints the elapsed time, or the dependencies of a group task.
func (o *ConsoleObserver) OnFinish(t *Task, elapsed time.Duration) {
	if t.Fn == nil {
		deps := "[ " + strings.Join(t.Deps, ", ") + " ]"
		fmt.Fprintf(o.w, "Finished '%s' %s\n", o.name.Render(t.Name), o.name.Render(deps))
		return
	}
	fmt.Fprintf(o.w, "Finished '%s' after %s\n", o.name.Render(t.Name), o.elapsed.Render(PrettyDuration(elapsed)))
}

// OnError prints the failure and its message.
func (o *ConsoleObserver) OnError(t *Task, elapsed time.Duration, err error) {
	fmt.Fprintf(o.w, "'%s' %s %s\n", o.name.Render(t.Name), o.failed.Render("errored after"), o.elapsed.Render(PrettyDuration(elapsed)))
	fmt.Fprintln(o.w, err)
}

// PrettyDuration renders d as "850 ms", "1.25 s" or "2.5 min".
func PrettyDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%d μs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%d ms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2f s", d.Seconds())
	default:
		return fmt.Sprintf("%.1f min", d.Minutes())
	}
}

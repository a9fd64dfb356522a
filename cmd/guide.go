package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mj1618/guidepilot/internal/automation"
	"github.com/mj1618/guidepilot/internal/controller"
	"github.com/mj1618/guidepilot/internal/output"
)

const guideHelp = `Load a YAML or JSON guide (steps: [{text|web_text}]) and read commands
from stdin. Advancing with "next" runs the current step's travel first when
auto-travel is on.

Commands:
  n, next            run the current travel (if any) and advance
  p, prev            go back one step
  g, goto <n>        jump to step n (1-based)
  auto [on|off]      toggle or set auto-travel
  bind <title>       bind a window
  locate <target>    find text on screen
  s, state           print the current step
  q, quit            exit`

var guideCmd = &cobra.Command{
	Use:   "guide <steps-file>",
	Short: "Walk through a guide interactively",
	Long:  guideHelp,
	Args:  cobra.ExactArgs(1),
	RunE:  runGuide,
}

func init() {
	rootCmd.AddCommand(guideCmd)
	guideCmd.Flags().Int("step", 1, "Start at this step (1-based)")
}

func runGuide(cmd *cobra.Command, args []string) error {
	g, err := controller.LoadGuide(args[0])
	if err != nil {
		return err
	}
	step, _ := cmd.Flags().GetInt("step")

	hub, err := openHub(hubOptions{OCR: true})
	if err != nil {
		return err
	}
	defer hub.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	serveMetrics(ctx, appConfig.Metrics.Addr)

	ctrl := controller.New(hub, g,
		controller.WithAutoTravel(appConfig.Macro.AutoTravel),
		controller.WithLogger(appLog),
	)
	go ctrl.Run(ctx)
	if step > 1 {
		ctrl.StepChanged(step - 1)
	}

	sess := &guideSession{ctrl: ctrl, out: cmd.OutOrStdout()}
	go sess.printEvents(ctx)
	return sess.readCommands(ctx, cmd.InOrStdin())
}

// guideSession turns stdin lines into controller calls and prints events.
type guideSession struct {
	ctrl *controller.Controller
	out  io.Writer
	mu   sync.Mutex
}

type guideCommand struct {
	Name string
	Arg  string
}

func parseGuideCommand(line string) (guideCommand, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return guideCommand{}, false
	}
	name := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
	switch name {
	case "n", "next":
		name = "next"
	case "p", "prev", "previous":
		name = "prev"
	case "g", "goto":
		name = "goto"
	case "s", "state":
		name = "state"
	case "q", "quit", "exit":
		name = "quit"
	case "auto", "bind", "locate", "help", "?":
	default:
		return guideCommand{}, false
	}
	return guideCommand{Name: name, Arg: arg}, true
}

func (s *guideSession) readCommands(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := s.handle(ctx, line)
			if err != nil {
				s.print(map[string]string{"error": err.Error()})
			}
			if quit {
				return nil
			}
		}
	}
}

// handle runs one command line. It reports whether the session should end.
func (s *guideSession) handle(ctx context.Context, line string) (bool, error) {
	if strings.TrimSpace(line) == "" {
		return false, nil
	}
	c, ok := parseGuideCommand(line)
	if !ok {
		return false, fmt.Errorf("unknown command %q (try help)", strings.Fields(line)[0])
	}
	switch c.Name {
	case "next":
		s.ctrl.Next()
	case "prev":
		s.ctrl.Previous()
	case "goto":
		n, err := strconv.Atoi(c.Arg)
		if err != nil {
			return false, fmt.Errorf("goto needs a step number")
		}
		s.ctrl.StepChanged(n - 1)
	case "auto":
		switch strings.ToLower(c.Arg) {
		case "":
			s.ctrl.ToggleAutoTravel()
		case "on":
			s.ctrl.SetAutoTravel(true)
		case "off":
			s.ctrl.SetAutoTravel(false)
		default:
			return false, fmt.Errorf("auto takes on or off")
		}
	case "bind":
		if c.Arg == "" {
			return false, fmt.Errorf("bind needs a window title")
		}
		s.ctrl.Bind(c.Arg)
	case "locate":
		if c.Arg == "" {
			return false, fmt.Errorf("locate needs a target")
		}
		s.ctrl.Locate(automation.LocateRequest{Target: c.Arg})
	case "state":
		st, err := s.ctrl.State(ctx)
		if err != nil {
			return false, err
		}
		s.print(st)
	case "help", "?":
		s.mu.Lock()
		fmt.Fprintln(s.out, guideHelp)
		s.mu.Unlock()
	case "quit":
		return true, nil
	}
	return false, nil
}

func (s *guideSession) printEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.ctrl.Events():
			if ev.Locate != nil {
				ev.Locate.Words = nil
			}
			s.print(ev)
		}
	}
}

func (s *guideSession) print(v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := output.Fprint(s.out, output.OutputFormat, output.PrettyOutput, v); err != nil {
		appLog.Warn("output failed", "error", err)
	}
	if output.OutputFormat == output.FormatYAML {
		fmt.Fprintln(s.out, "---")
	}
}

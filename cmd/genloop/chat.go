package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"genloop/internal/session"
	"genloop/internal/snapstore"
)

const (
	ansiDim   = "\x1b[2m"
	ansiReset = "\x1b[0m"
)

// printer renders delivered tokens to the console. The reverse prompt is
// delivered twice, once as sampled pieces and once as a whole; only the
// pieces are printed.
type printer struct {
	w        io.Writer
	color    bool
	digits   bool
	inThink  bool
	lastDigs *session.DigitProbs
}

func (p *printer) handle(ev session.Event) bool {
	switch ev.Type {
	case session.TypeSampledThink:
		if p.color && !p.inThink {
			fmt.Fprint(p.w, ansiDim)
		}
		p.inThink = true
		fmt.Fprint(p.w, ev.Piece)
	case session.TypeSampledVisible:
		p.endThink()
		fmt.Fprint(p.w, ev.Piece)
	}
	if ev.Digits != nil {
		p.lastDigs = ev.Digits
	}
	return false
}

func (p *printer) endThink() {
	if p.color && p.inThink {
		fmt.Fprint(p.w, ansiReset)
	}
	p.inThink = false
}

// finish closes the answer line.
func (p *printer) finish() {
	p.endThink()
	fmt.Fprintln(p.w)
	if p.digits && p.lastDigs != nil {
		d := *p.lastDigs
		fmt.Fprintf(p.w, "digits: argmax=%d p=%.3f\n", d.Argmax(), d[d.Argmax()])
	}
	p.lastDigs = nil
}

// chat is the interactive console over one session.
type chat struct {
	sess  *session.Session
	slot  session.SnapshotSlot
	store *snapstore.Store
	out   *printer
	// interrupt cancels the running query; set by run.
	interrupt <-chan os.Signal
}

func newChatCmd(a *app) *cobra.Command {
	var (
		model  string
		system string
		digits bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive console; Ctrl+C interrupts the current answer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.sessionParams(model)
			if err != nil {
				return err
			}
			if system != "" {
				p.SystemPrompt = system
			}
			out := &printer{
				w:      cmd.OutOrStdout(),
				color:  term.IsTerminal(int(os.Stdout.Fd())),
				digits: digits,
			}
			p.OnToken = out.handle
			sess, err := session.Open(a.backend(), p, session.WithLogger(a.log))
			if err != nil {
				return err
			}
			defer sess.Close()
			store, err := a.openStore()
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt)
			defer signal.Stop(sig)

			c := &chat{sess: sess, store: store, out: out, interrupt: sig}
			fmt.Fprintln(cmd.ErrOrStderr(), "Type /help for commands, Ctrl+D to quit.")
			return c.run(cmd.Context(), cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model id or .gguf path")
	cmd.Flags().StringVarP(&system, "system", "s", "", "System prompt")
	cmd.Flags().BoolVar(&digits, "digits", false, "Print the digit distribution of each answer")
	return cmd
}

const chatHelp = `/reset        clear the conversation
/snap         remember the current state
/restore      return to the remembered state
/clear        forget the remembered state
/save NAME    store the current state under NAME
/load NAME    restore the state stored under NAME
/quit         exit`

func (c *chat) run(ctx context.Context, in io.Reader) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer c.slot.Clear()
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	w := c.out.w
	for {
		fmt.Fprint(w, "> ")
		if !sc.Scan() {
			fmt.Fprintln(w)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := c.command(ctx, line)
			if err != nil {
				fmt.Fprintln(w, "error:", err)
			}
			if quit {
				return nil
			}
			continue
		}
		res, err := c.query(ctx, line)
		c.out.finish()
		if err != nil {
			if session.IsContextExhausted(err) {
				fmt.Fprintln(w, "context is full; /reset or /restore to continue")
				continue
			}
			return err
		}
		if res.Reason == session.StopInterrupt {
			fmt.Fprintln(w, "[interrupted]")
		}
	}
}

// query runs one turn, canceling it on the first interrupt signal. Ctrl+C
// pressed while idle at the prompt is discarded.
func (c *chat) query(ctx context.Context, prompt string) (session.Result, error) {
	c.drainInterrupts()
	qctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-c.interrupt:
			cancel()
		case <-done:
		}
	}()
	return c.sess.Query(qctx, prompt)
}

func (c *chat) drainInterrupts() {
	for {
		select {
		case <-c.interrupt:
		default:
			return
		}
	}
}

func (c *chat) command(ctx context.Context, line string) (quit bool, err error) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	w := c.out.w
	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(w, chatHelp)
	case "/reset":
		err = c.sess.Reset()
	case "/snap":
		if err = c.slot.Update(c.sess); err == nil {
			fmt.Fprintf(w, "snapshot at %d tokens\n", c.sess.TokenCount())
		}
	case "/restore":
		if err = c.slot.Restore(c.sess); err == nil {
			fmt.Fprintf(w, "restored to %d tokens\n", c.sess.TokenCount())
		}
	case "/clear":
		c.slot.Clear()
	case "/save", "/load":
		if c.store == nil {
			return false, errors.New("no snapshot store configured")
		}
		if cmd == "/save" {
			var st *session.State
			if st, err = c.sess.CaptureState(); err != nil {
				return false, err
			}
			defer st.Release()
			var rec snapstore.Record
			if rec, err = c.store.Put(ctx, arg, st); err == nil {
				fmt.Fprintf(w, "saved %s (%d tokens)\n", rec.Name, rec.TokenCount)
			}
			return false, err
		}
		var rec snapstore.Record
		if rec, err = c.store.Get(ctx, arg); err != nil {
			return false, err
		}
		if err = c.sess.RestoreState(rec.State()); err == nil {
			fmt.Fprintf(w, "loaded %s (%d tokens)\n", rec.Name, c.sess.TokenCount())
		}
	default:
		err = fmt.Errorf("unknown command %s; /help lists commands", cmd)
	}
	return false, err
}

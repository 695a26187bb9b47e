package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Kavirubc/cofound/internal/card"
	"github.com/Kavirubc/cofound/internal/config"
	"github.com/Kavirubc/cofound/internal/discovery"
	"github.com/Kavirubc/cofound/internal/gesture"
	"github.com/Kavirubc/cofound/internal/output"
	"github.com/Kavirubc/cofound/internal/queue"
	"github.com/Kavirubc/cofound/pkg/models"
)

const springBackDuration = 250 * time.Millisecond

const browseHelp = `Commands:
  r, interested     show interest (swipe right)
  l, pass           pass (swipe left)
  u, super          super-like (swipe up)
  d <dx> [dy]       drag the card by dx,dy pixels and release
  e, expand         toggle the full profile
  m, more           look for more candidates
  h, help           show this help
  q, quit           stop browsing`

func newBrowseCmd() *cobra.Command {
	var instant bool

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Swipe through recommended co-founders",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			sess, err := a.requireSession()
			if err != nil {
				return err
			}

			client := a.client(sess)
			ob, closeOutbox, err := a.openOutbox(ctx)
			if err != nil {
				return err
			}
			defer closeOutbox()

			q := queue.NewManager(client, queue.Options{
				InitialBatch:  a.cfg.Discovery.InitialBatch,
				PrefetchBatch: a.cfg.Discovery.PrefetchBatch,
				LowWaterMark:  a.cfg.Discovery.LowWaterMark,
				FetchTimeout:  a.cfg.Discovery.FetchTimeout(),
				Logger:        a.logger,
			})

			var animator gesture.Animator = gesture.ImmediateAnimator{}
			timer := gesture.NewTimerAnimator(springBackDuration)
			if !instant {
				animator = timer
			}
			defer timer.Stop()

			ds := discovery.New(q, client, discovery.Options{
				Gesture:       gestureOptions(a.cfg.Gesture),
				Animator:      animator,
				SubmitTimeout: a.cfg.API.Timeout(),
				Outbox:        ob,
				Logger:        a.logger,
			})

			b := newBrowser(ds, a.printer, cmd.InOrStdin())

			a.printer.Info("Loading candidates...")
			if err := ds.Start(ctx, sess); err != nil {
				if errors.Is(err, queue.ErrNoIdentity) {
					return err
				}
				a.printer.Warning("Couldn't load candidates: %v", err)
				a.printer.Info("Type 'm' to try again.")
			}

			g, gctx := errgroup.WithContext(ctx)
			loopCtx, cancelLoop := context.WithCancel(gctx)
			defer cancelLoop()

			if ob != nil {
				g.Go(func() error {
					return ob.Run(loopCtx, client, a.cfg.Outbox.FlushInterval())
				})
			}
			g.Go(func() error {
				b.reportSubmissions(loopCtx)
				return nil
			})
			g.Go(func() error {
				defer cancelLoop()
				return b.run(loopCtx)
			})
			loopErr := g.Wait()

			ds.Close()
			timer.Stop()

			waitCtx, cancel := context.WithTimeout(context.Background(), a.cfg.API.Timeout())
			defer cancel()
			if err := ds.Wait(waitCtx); err != nil {
				a.printer.Warning("Some decisions were still being sent when browsing stopped")
			}
			if ob != nil {
				if res, err := ob.Flush(waitCtx, client); err == nil && res.Delivered > 0 {
					a.printer.Info("Delivered %d queued decisions", res.Delivered)
				}
			}

			printSummary(a.printer, ds.Summary())
			if errors.Is(loopErr, context.Canceled) {
				return nil
			}
			return loopErr
		},
	}

	cmd.Flags().BoolVar(&instant, "instant", false, "skip card animations")
	return cmd
}

func gestureOptions(c config.GestureConfig) gesture.Options {
	return gesture.Options{
		SwipeThreshold: c.SwipeThreshold,
		ScreenWidth:    c.ScreenWidth,
		ScreenHeight:   c.ScreenHeight,
		MaxRotation:    c.MaxRotationDegrees,
		ExitDuration:   c.ExitDuration(),
		VerticalSuper:  c.VerticalSuper,
	}
}

// browser is the interactive card loop
type browser struct {
	session *discovery.Session
	printer *output.Printer
	in      io.Reader
	view    card.View
	idle    chan struct{}
	// shown is the id of the card last rendered
	shown string
}

func newBrowser(ds *discovery.Session, printer *output.Printer, in io.Reader) *browser {
	b := &browser{
		session: ds,
		printer: printer,
		in:      in,
		view:    card.View{UseColors: printer.UseColors()},
		idle:    make(chan struct{}, 1),
	}
	ds.Gesture().Subscribe(func(s gesture.State) {
		if s.Phase == gesture.Idle {
			select {
			case b.idle <- struct{}{}:
			default:
			}
		}
	})
	return b
}

// run reads commands until quit, end of input or ctx is done
func (b *browser) run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(b.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	b.render(ctx)
	for {
		fmt.Fprint(b.printer.Out(), "> ")

		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = l
		}

		quit, err := b.handle(ctx, line)
		if err != nil {
			b.printer.Warning("%v", err)
		}
		if quit {
			return nil
		}
	}
}

// handle executes one command line
func (b *browser) handle(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "q", "quit", "exit":
		return true, nil
	case "h", "help", "?":
		b.printer.Print("%s", browseHelp)
		return false, nil
	case "e", "expand":
		b.view.Toggle()
		b.shown = ""
		b.render(ctx)
		return false, nil
	case "m", "more":
		b.refill(ctx)
		return false, nil
	case "d", "drag":
		return false, b.drag(ctx, fields[1:])
	}

	kind, err := models.ParseDecisionKind(aliasKind(fields[0]))
	if err != nil {
		return false, fmt.Errorf("unknown command %q, type 'h' for help", fields[0])
	}
	b.drainIdle()
	if err := b.session.Swipe(kind); err != nil {
		return false, b.explain(err)
	}
	b.afterGesture(ctx)
	return false, nil
}

func aliasKind(cmd string) string {
	switch cmd {
	case "l", "p":
		return "pass"
	case "r", "i", "y":
		return "interested"
	case "u", "s":
		return "super"
	}
	return cmd
}

// drag simulates a pointer drag from the card center
func (b *browser) drag(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return fmt.Errorf("usage: d <dx> [dy]")
	}
	dx, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid dx %q", args[0])
	}
	dy := 0.0
	if len(args) == 2 {
		if dy, err = strconv.ParseFloat(args[1], 64); err != nil {
			return fmt.Errorf("invalid dy %q", args[1])
		}
	}

	opts := b.session.Gesture().Options()
	center := gesture.Point{X: opts.ScreenWidth / 2, Y: opts.ScreenHeight / 2}

	b.drainIdle()
	if err := b.session.PointerDown(center); err != nil {
		return b.explain(err)
	}
	if err := b.session.PointerMove(gesture.Point{X: center.X + dx, Y: center.Y + dy}); err != nil {
		return err
	}

	state := b.session.Gesture().State()
	if stamp := card.Overlay(state, opts.SwipeThreshold); stamp != "" {
		b.printer.Print("[%s] tilt %.1f°", stamp, state.Transform.RotationDeg)
	}

	phase, err := b.session.PointerUp()
	if err != nil {
		return err
	}
	if phase == gesture.SpringingBack {
		b.printer.Print("%s", b.printer.Dim("...springs back"))
	}
	b.afterGesture(ctx)
	return nil
}

// afterGesture waits for the card animation to finish, then shows the
// next card
func (b *browser) afterGesture(ctx context.Context) {
	select {
	case <-b.idle:
	case <-ctx.Done():
		return
	}
	b.render(ctx)
}

func (b *browser) drainIdle() {
	select {
	case <-b.idle:
	default:
	}
}

func (b *browser) refill(ctx context.Context) {
	q := b.session.Queue()
	if !b.session.Refill() && !q.Snapshot().PrefetchInFlight {
		b.printer.Warning("Can't look for more candidates right now")
		return
	}
	b.printer.Info("Looking for more candidates...")
	q.Wait()
	if ctx.Err() != nil {
		return
	}
	b.shown = ""
	b.render(ctx)
}

// render shows the top card if it changed since the last render
func (b *browser) render(ctx context.Context) {
	c, err := b.session.Current()
	if discovery.IsExhausted(err) {
		q := b.session.Queue()
		if q.Snapshot().PrefetchInFlight {
			b.printer.Info("Loading more candidates...")
			q.Wait()
			if ctx.Err() == nil {
				c, err = b.session.Current()
			}
		}
	}
	switch {
	case discovery.IsExhausted(err):
		if b.shown != "" || b.session.Summary().Shown == 0 {
			b.printer.Info("No more candidates right now. Type 'm' to check again or 'q' to quit.")
		}
		b.shown = ""
		return
	case err != nil:
		return
	case c.ID == b.shown:
		return
	}

	b.shown = c.ID
	out := b.printer.Out()
	fmt.Fprintln(out)
	b.view.Render(out, c)
	if next := b.session.Queue().Upcoming(3); len(next) > 1 {
		card.Stack(out, next[1:])
	}
}

// reportSubmissions surfaces background submission failures
func (b *browser) reportSubmissions(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-b.session.Submissions():
			if r.Err == nil {
				continue
			}
			if r.Queued {
				b.printer.Warning("Couldn't record your decision yet; it will be retried")
			} else {
				b.printer.Warning("Couldn't record your decision: %v", r.Err)
			}
		}
	}
}

func (b *browser) explain(err error) error {
	switch {
	case discovery.IsExhausted(err):
		return fmt.Errorf("no candidate to act on")
	case errors.Is(err, gesture.ErrBusy):
		return fmt.Errorf("the card is still moving")
	}
	return err
}

func printSummary(p *output.Printer, s models.BrowseSummary) {
	p.Header("Session summary")
	p.Print("Seen:        %d", s.Shown)
	p.Print("Interested:  %d", s.Accepted)
	p.Print("Super:       %d", s.SuperAccepted)
	p.Print("Passed:      %d", s.Rejected)
	if s.SubmitFailed > 0 {
		p.Print("Not sent:    %d (%d queued for retry)", s.SubmitFailed, s.Queued)
	}
}

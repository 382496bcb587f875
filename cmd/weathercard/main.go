// Command weathercard is the terminal front end: type a city, get its card.
//
//	weathercard            interactive; one lookup per line until EOF
//	weathercard Reykjavik  one lookup, exit status 1 on failure
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
	"syscall"

	"go.uber.org/zap"

	"github.com/kjstillabower/city-weather/internal/app"
	"github.com/kjstillabower/city-weather/internal/config"
	"github.com/kjstillabower/city-weather/internal/display"
	"github.com/kjstillabower/city-weather/internal/models"
	"github.com/kjstillabower/city-weather/internal/observability"
	"github.com/kjstillabower/city-weather/internal/trigger"
)

const prompt = "🔍 Find Weather: "

type lookuper interface {
	Lookup(ctx context.Context, city string) (models.Report, error)
}

func main() {
	logger, err := observability.NewConsoleLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	pipeline, err := app.Build(cfg, logger)
	if err != nil {
		logger.Fatal("pipeline", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = context.WithValue(ctx, "logger", logger)

	t := &terminal{lookups: pipeline.Service, guard: trigger.New(), out: os.Stdout}
	if len(os.Args) > 1 {
		if !t.search(ctx, strings.Join(os.Args[1:], " ")) {
			os.Exit(1)
		}
		return
	}
	if err := t.loop(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("input", zap.Error(err))
		os.Exit(1)
	}
}

// terminal renders lookups as text cards. The guard plays the part of the
// disabled search button.
type terminal struct {
	lookups lookuper
	guard   *trigger.Guard
	out     io.Writer
}

// loop prompts, reads one city per line and searches it, until EOF or ctx is
// done. Lines are read on their own goroutine so cancellation does not wait
// for the next line; that goroutine stays blocked on in until it returns.
func (t *terminal) loop(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
		close(lines)
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(t.out, prompt)
		select {
		case <-ctx.Done():
			fmt.Fprintln(t.out)
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(t.out)
				return <-readErr
			}
			t.search(ctx, line)
			fmt.Fprintln(t.out)
		}
	}
}

// search runs one guarded lookup and prints the card or the notice.
// It reports whether a card was printed.
func (t *terminal) search(ctx context.Context, city string) bool {
	var report models.Report
	err := t.guard.Run(func() error {
		fmt.Fprintln(t.out, "Searching...")
		var err error
		report, err = t.lookups.Lookup(ctx, city)
		return err
	})
	if err != nil {
		if errors.Is(err, trigger.ErrBusy) {
			_ = display.WriteNotice(t.out, display.Notice{Title: display.TitleError, Message: "A lookup is already in progress."})
			return false
		}
		_ = display.WriteNotice(t.out, display.NoticeFor(err))
		return false
	}
	if err := display.WriteCard(t.out, display.Render(report)); err != nil {
		return false
	}
	return true
}

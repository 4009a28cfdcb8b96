// Package interview drives a scan participant through successively finer
// questions until its data is confirmed to match the local version store or
// every differing entity is known.
package interview

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/merelin/diffa-sub000/common/types"
	"github.com/merelin/diffa-sub000/scan"
)

// ErrTooManyRounds is returned when an interview doesn't converge within MaxRounds.
var ErrTooManyRounds = errors.New("interview: too many rounds")

type Opt func(*Coordinator)

func WithLogger(logger *zap.Logger) Opt {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithClock(clock clockwork.Clock) Opt {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

func WithConfig(cfg Config) Opt {
	return func(c *Coordinator) {
		c.cfg = cfg
	}
}

// Outcome of a finished interview.
type Outcome struct {
	Differences types.EntityDifferences
	// Questions is the number of questions asked.
	Questions int
	// Rounds is the number of rounds of questions.
	Rounds int
	// Final is always scan.NoFurtherQuestions.
	Final scan.Question
}

// MarshalLogObject implements logging encoder for Outcome.
func (o *Outcome) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddInt("questions", o.Questions)
	encoder.AddInt("rounds", o.Rounds)
	encoder.AddArray("differences", o.Differences)
	return nil
}

// Coordinator runs interviews.
type Coordinator struct {
	logger *zap.Logger
	clock  clockwork.Clock
	cfg    Config
	store  VersionStore
}

// New creates a coordinator on top of the local store.
func New(store VersionStore, opts ...Opt) *Coordinator {
	c := &Coordinator{
		logger: zap.NewNop(),
		clock:  clockwork.NewRealClock(),
		cfg:    DefaultConfig(),
		store:  store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type step struct {
	next  []scan.Question
	diffs types.EntityDifferences
}

// Run interviews the participant holding the data of endpoint. Every round
// asks the questions refined by the previous one, the interview ends once no
// question is left.
func (c *Coordinator) Run(ctx context.Context, endpoint string, participant scan.Scannable) (*Outcome, error) {
	q, err := c.store.InitialQuestion(ctx, endpoint)
	if err != nil {
		failed.Inc()
		return nil, fmt.Errorf("initial question of %s: %w", endpoint, err)
	}
	out := &Outcome{}
	queue := []scan.Question{q}
	for len(queue) > 0 {
		if c.cfg.MaxRounds > 0 && out.Rounds == c.cfg.MaxRounds {
			failed.Inc()
			return nil, fmt.Errorf("%w: %d rounds with %d questions left", ErrTooManyRounds, out.Rounds, len(queue))
		}
		out.Rounds++
		out.Questions += len(queue)
		steps, err := c.round(ctx, endpoint, participant, queue)
		if err != nil {
			failed.Inc()
			return nil, fmt.Errorf("interview %s round %d: %w", endpoint, out.Rounds, err)
		}
		queue = nil
		for _, s := range steps {
			out.Differences = append(out.Differences, s.diffs...)
			for _, nq := range s.next {
				if !nq.Terminal() {
					queue = append(queue, nq)
				}
			}
		}
		c.logger.Debug("interview round",
			zap.String("endpoint", endpoint),
			zap.Int("round", out.Rounds),
			zap.Int("refinements", len(queue)),
		)
	}
	slices.SortFunc(out.Differences, func(a, b types.EntityDifference) int {
		return strings.Compare(a.ID, b.ID)
	})
	out.Final = scan.NoFurtherQuestions
	roundsPerInterview.Observe(float64(out.Rounds))
	if len(out.Differences) == 0 {
		inSync.Inc()
	} else {
		differing.Inc()
	}
	c.logger.Info("interview finished", zap.String("endpoint", endpoint), zap.Object("outcome", out))
	return out, nil
}

// round asks the questions concurrently and reconciles every set of answers.
func (c *Coordinator) round(
	ctx context.Context,
	endpoint string,
	participant scan.Scannable,
	questions []scan.Question,
) ([]step, error) {
	steps := make([]step, len(questions))
	eg, ctx := errgroup.WithContext(ctx)
	if c.cfg.Parallelism > 0 {
		eg.SetLimit(c.cfg.Parallelism)
	}
	for i, q := range questions {
		eg.Go(func() error {
			answers, err := c.ask(ctx, participant, q)
			if err != nil {
				return err
			}
			next, diffs, err := c.store.ContinueInterview(ctx, endpoint, q, answers)
			if err != nil {
				return err
			}
			steps[i] = step{next: next, diffs: diffs}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return steps, nil
}

// ask runs the scan of q and collects its answers through an AnswerStream.
func (c *Coordinator) ask(ctx context.Context, participant scan.Scannable, q scan.Question) ([]scan.Answer, error) {
	questionsAsked.Inc()
	stream := NewAnswerStream(c.cfg, c.clock)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := participant.Scan(ctx, q, stream); err != nil {
			stream.Fail(fmt.Errorf("scan: %w", err))
			return
		}
		stream.OnCompletion()
	}()
	answers, err := c.drain(ctx, stream)
	if err != nil {
		// a participant stuck in Scan is abandoned, it returns once it
		// observes the canceled context or the closed stream.
		stream.Close()
		return nil, err
	}
	<-done
	answersReceived.Add(float64(len(answers)))
	c.logger.Debug("question answered", zap.Object("question", q), zap.Int("answers", len(answers)))
	return answers, nil
}

func (c *Coordinator) drain(ctx context.Context, stream *AnswerStream) ([]scan.Answer, error) {
	var answers []scan.Answer
	for {
		more, err := stream.HasNext(ctx)
		if err != nil {
			return nil, err
		}
		if !more {
			return answers, nil
		}
		a, ok, err := stream.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return answers, nil
		}
		answers = append(answers, a)
	}
}

package explore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/statloom-cli/internal/dataset"
	"github.com/KaramelBytes/statloom-cli/internal/examine"
)

// DefaultTaskTimeout bounds one call to the numeric service.
const DefaultTaskTimeout = 30 * time.Second

// Runner dispatches the per-group computations of an analysis.
type Runner struct {
	svc         examine.Service
	workers     int
	taskTimeout time.Duration
	log         *zap.Logger
}

// NewRunner returns a Runner using svc. Zero workers means one per CPU; a
// zero timeout selects DefaultTaskTimeout.
func NewRunner(svc examine.Service, workers int, taskTimeout time.Duration, log *zap.Logger) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if taskTimeout <= 0 {
		taskTimeout = DefaultTaskTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{svc: svc, workers: workers, taskTimeout: taskTimeout, log: log}
}

// Output is the result of a run.
type Output struct {
	RunID      uuid.UUID
	Groups     []*Group
	Aggregated *Aggregated
	Failures   []*ComputationError
	Tasks      int
}

// Warning summarizes failed tasks, or returns "" when every task succeeded.
func (o *Output) Warning() string {
	if len(o.Failures) == 0 {
		return ""
	}
	return summarize(o.Failures, o.Tasks)
}

type task struct {
	group *Group
	dep   dataset.Variable
}

// Run validates the input, groups the rows and computes every (group,
// dependent variable) pair. A failed task is recorded in Output.Failures
// without affecting the others. Run returns an *EmptyResultError when no
// task succeeded.
func (r *Runner) Run(ctx context.Context, ds *dataset.Dataset, p Params) (*Output, error) {
	if err := Validate(ds, p); err != nil {
		return nil, err
	}
	out := &Output{RunID: uuid.New()}
	log := r.log.With(zap.String("run_id", out.RunID.String()))

	out.Groups = GroupRows(ds, p.FactorVariables())
	var tasks []task
	for _, g := range out.Groups {
		for _, dep := range p.Dependents {
			tasks = append(tasks, task{group: g, dep: dep})
		}
	}
	out.Tasks = len(tasks)
	log.Debug("dispatching tasks", zap.Int("groups", len(out.Groups)), zap.Int("tasks", len(tasks)), zap.Int("workers", r.workers))

	outcomes := make([]Outcome, len(tasks))
	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, t := range tasks {
		g.Go(func() error {
			outcomes[i] = r.runTask(ctx, ds, p, t)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("explore run: %w", err)
	}
	for _, o := range outcomes {
		if o.Err != nil {
			out.Failures = append(out.Failures, &ComputationError{Group: o.Group.Key, Variable: o.Variable.Name, Err: o.Err})
		}
	}
	out.Aggregated = Aggregate(out.Groups, p.Dependents, outcomes)
	log.Info("explore run finished", zap.Int("tasks", out.Tasks), zap.Int("failed", len(out.Failures)))
	if out.Aggregated.Empty() {
		return nil, &EmptyResultError{Failures: out.Failures}
	}
	return out, nil
}

type reply struct {
	res *examine.Result
	err error
}

func (r *Runner) runTask(ctx context.Context, ds *dataset.Dataset, p Params, t task) Outcome {
	o := Outcome{Group: t.group, Variable: t.dep}
	req := examine.Request{
		Variable: t.dep,
		Values:   floats(ds, t.dep.Index, t.group.Rows),
		Options:  p.options(),
	}
	if p.Weight != nil {
		req.Weights = floats(ds, p.Weight.Index, t.group.Rows)
	}

	tctx, cancel := context.WithTimeout(ctx, r.taskTimeout)
	defer cancel()
	ch := make(chan reply, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				ch <- reply{err: fmt.Errorf("service panic: %v", v)}
			}
		}()
		res, err := r.svc.Examine(tctx, req)
		ch <- reply{res: res, err: err}
	}()

	select {
	case <-tctx.Done():
		o.Err = tctx.Err()
		if errors.Is(o.Err, context.DeadlineExceeded) {
			o.Err = fmt.Errorf("no response within %s: %w", r.taskTimeout, o.Err)
		}
	case rep := <-ch:
		switch {
		case rep.err != nil:
			o.Err = rep.err
		case rep.res == nil:
			o.Err = errors.New("service returned no result")
		default:
			rep.res.Variable = t.dep
			o.Result = rep.res
		}
	}
	if o.Err != nil {
		r.log.Warn("computation failed", zap.String("variable", t.dep.Name), zap.Stringer("group", t.group.Key), zap.Error(o.Err))
	}
	return o
}

// floats extracts a column for the given rows; cells without a numeric
// reading become NaN.
func floats(ds *dataset.Dataset, idx int, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, v := range ds.Column(idx, rows) {
		f, ok := v.Float()
		if !ok {
			f = math.NaN()
		}
		out[i] = f
	}
	return out
}

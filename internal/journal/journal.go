package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"kirana/backend/internal/clock"
	"kirana/backend/internal/store"
	"kirana/backend/internal/xid"
)

type Op string

const (
	OpRecordSale Op = "record_sale"
	OpCancelSale Op = "cancel_sale"
)

type Step struct {
	Name string `json:"name"`
	Done bool   `json:"done"`
}

// Intent is the write-ahead record of a compound operation. It is removed
// once every step has been applied.
type Intent struct {
	ID        string          `json:"id"`
	Op        Op              `json:"op"`
	Ref       string          `json:"ref"`
	Steps     []Step          `json:"steps"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	LastError string          `json:"last_error,omitempty"`
}

func (i Intent) Completed() []string {
	out := make([]string, 0, len(i.Steps))
	for _, s := range i.Steps {
		if s.Done {
			out = append(out, s.Name)
		}
	}
	return out
}

func (i Intent) Remaining() []string {
	out := make([]string, 0, len(i.Steps))
	for _, s := range i.Steps {
		if !s.Done {
			out = append(out, s.Name)
		}
	}
	return out
}

func (i Intent) IsDone(step string) bool {
	for _, s := range i.Steps {
		if s.Name == step {
			return s.Done
		}
	}
	return false
}

type Journal struct {
	intents *store.Collection[Intent]
	clock   clock.Clock
}

func New(kv store.KV, clk clock.Clock) *Journal {
	return &Journal{intents: store.NewCollection[Intent](kv, store.KeyJournal), clock: clk}
}

// Begin persists a new intent with every step pending.
func (j *Journal) Begin(ctx context.Context, op Op, ref string, steps []string, payload any) (Intent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Intent{}, fmt.Errorf("encode %s payload: %w", op, err)
	}
	now := j.clock.Now()
	intent := Intent{
		ID:        xid.New("int"),
		Op:        op,
		Ref:       ref,
		Steps:     make([]Step, 0, len(steps)),
		Payload:   raw,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, name := range steps {
		intent.Steps = append(intent.Steps, Step{Name: name})
	}

	err = j.intents.Update(ctx, func(intents []Intent) ([]Intent, error) {
		return append(intents, intent), nil
	})
	if err != nil {
		return Intent{}, err
	}
	return intent, nil
}

func (j *Journal) MarkStep(ctx context.Context, id string, step string) error {
	return j.modify(ctx, id, func(i *Intent) {
		for k := range i.Steps {
			if i.Steps[k].Name == step {
				i.Steps[k].Done = true
			}
		}
		i.LastError = ""
	})
}

func (j *Journal) RecordFailure(ctx context.Context, id string, cause error) error {
	return j.modify(ctx, id, func(i *Intent) {
		i.LastError = cause.Error()
	})
}

func (j *Journal) modify(ctx context.Context, id string, fn func(*Intent)) error {
	return j.intents.Update(ctx, func(intents []Intent) ([]Intent, error) {
		for k := range intents {
			if intents[k].ID == id {
				fn(&intents[k])
				intents[k].UpdatedAt = j.clock.Now()
				return intents, nil
			}
		}
		return nil, store.ErrNotFound
	})
}

// Complete removes a fully applied intent.
func (j *Journal) Complete(ctx context.Context, id string) error {
	return j.intents.Update(ctx, func(intents []Intent) ([]Intent, error) {
		kept := make([]Intent, 0, len(intents))
		for _, i := range intents {
			if i.ID != id {
				kept = append(kept, i)
			}
		}
		return kept, nil
	})
}

// Discard drops an intent without applying it.
func (j *Journal) Discard(ctx context.Context, id string) error {
	return j.Complete(ctx, id)
}

func (j *Journal) Get(ctx context.Context, id string) (*Intent, error) {
	intents, err := j.intents.Load(ctx)
	if err != nil {
		return nil, err
	}
	for k := range intents {
		if intents[k].ID == id {
			i := intents[k]
			return &i, nil
		}
	}
	return nil, store.ErrNotFound
}

// Pending returns unfinished intents, oldest first.
func (j *Journal) Pending(ctx context.Context) ([]Intent, error) {
	intents, err := j.intents.Load(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(intents, func(a, b int) bool { return intents[a].CreatedAt.Before(intents[b].CreatedAt) })
	return intents, nil
}

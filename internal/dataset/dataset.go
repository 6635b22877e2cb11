// Package dataset builds the working set of items a session presents,
// balancing correct items against distractors and degrading predictably when
// the content bank is short.
package dataset

import (
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/abhisek/missionkit/internal/content"
	"github.com/abhisek/missionkit/internal/logging"
	"github.com/abhisek/missionkit/internal/mission"
)

// Role is the part an item plays in a dataset.
type Role string

const (
	RoleCorrect    Role = "correct"
	RoleDistractor Role = "distractor"
	// RoleBackfill marks a correct item standing in for a missing distractor.
	RoleBackfill Role = "backfill"
)

// PreparedItem is a content item narrowed to presentation-safe fields.
type PreparedItem struct {
	ID        string           `json:"id"`
	Text      string           `json:"text"`
	IsCorrect bool             `json:"isCorrect"`
	ImageURL  string           `json:"imageUrl,omitempty"`
	Type      content.ItemType `json:"type"`
	RuleTag   string           `json:"ruleTag,omitempty"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
	Role      Role             `json:"role"`
}

// GameDataset is the shuffled item set of one session.
// CorrectCount + DistractorCount always equals len(Items).
type GameDataset struct {
	Items           []PreparedItem `json:"items"`
	CorrectCount    int            `json:"correctCount"`
	DistractorCount int            `json:"distractorCount"`

	TargetCorrect     int `json:"targetCorrect"`
	TargetDistractors int `json:"targetDistractors"`
	CorrectDeficit    int `json:"correctDeficit"`
	DistractorDeficit int `json:"distractorDeficit"`
	Backfilled        int `json:"backfilled"`
}

// Len returns the number of items.
func (d *GameDataset) Len() int { return len(d.Items) }

// Builder samples datasets from content banks.
type Builder struct {
	mu     sync.Mutex
	rng    *rand.Rand
	logger *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithRand sets the random source, for reproducible datasets.
func WithRand(r *rand.Rand) Option {
	return func(b *Builder) { b.rng = r }
}

// WithSeed seeds the random source.
func WithSeed(seed uint64) Option {
	return func(b *Builder) { b.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithLogger sets the logger used for degradation warnings.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a Builder seeded from the runtime's random source
// unless an option says otherwise.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{}
	for _, o := range opts {
		o(b)
	}
	if b.rng == nil {
		b.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	b.logger = logging.OrDiscard(b.logger)
	return b
}

// Targets returns the requested correct and distractor counts for rc.
func Targets(rc mission.ResolvedConfig) (correct, distractors int) {
	pct := rc.DistractorPercent
	if !rc.Variant.UsesDistractors || pct < 0 {
		pct = 0
	}
	distractors = rc.ItemCount * pct / 100
	return rc.ItemCount - distractors, distractors
}

// Build selects and shuffles a dataset from bank for rc.
//
// Each pool contributes up to its target. A distractor shortfall is
// backfilled from the remaining correct items; a correct shortfall is never
// filled with distractors. An empty correct pool is the only error.
func (b *Builder) Build(bank []content.Item, rc mission.ResolvedConfig) (*GameDataset, error) {
	accepted := content.FilterTypes(bank, rc.Variant.ItemTypes)
	correct, distractors := content.Partition(accepted)
	if len(correct) == 0 {
		return nil, &ContentInsufficientError{
			Reasons:   []Reason{ReasonNoCorrectItems},
			Available: len(accepted),
			Requested: rc.ItemCount,
		}
	}

	targetC, targetD := Targets(rc)
	takeC := min(targetC, len(correct))
	takeD := min(targetD, len(distractors))

	ds := &GameDataset{
		TargetCorrect:     targetC,
		TargetDistractors: targetD,
		CorrectDeficit:    targetC - takeC,
		DistractorDeficit: targetD - takeD,
	}
	ds.Backfilled = min(ds.DistractorDeficit, len(correct)-takeC)

	b.mu.Lock()
	defer b.mu.Unlock()

	pickedC := sample(b.rng, correct, takeC+ds.Backfilled)
	pickedD := sample(b.rng, distractors, takeD)

	ds.Items = make([]PreparedItem, 0, len(pickedC)+len(pickedD))
	for i, it := range pickedC {
		role := RoleCorrect
		if i >= takeC {
			role = RoleBackfill
		}
		ds.Items = append(ds.Items, prepare(it, role))
	}
	for _, it := range pickedD {
		ds.Items = append(ds.Items, prepare(it, RoleDistractor))
	}
	ds.CorrectCount = len(pickedC)
	ds.DistractorCount = len(pickedD)

	b.rng.Shuffle(len(ds.Items), func(i, j int) {
		ds.Items[i], ds.Items[j] = ds.Items[j], ds.Items[i]
	})

	if ds.CorrectDeficit > 0 || ds.DistractorDeficit > 0 {
		b.logger.Warn("content bank short for mission",
			"game_type", string(rc.GameType),
			"item_count", rc.ItemCount,
			"correct_deficit", ds.CorrectDeficit,
			"distractor_deficit", ds.DistractorDeficit,
			"backfilled", ds.Backfilled,
			"size", ds.Len(),
		)
	}
	return ds, nil
}

// Validate checks that bank can support a full session of rc. Every
// violation is reported; an empty bank implies no other reason.
func Validate(bank []content.Item, rc mission.ResolvedConfig) error {
	accepted := content.FilterTypes(bank, rc.Variant.ItemTypes)
	e := &ContentInsufficientError{Available: len(accepted), Requested: rc.ItemCount}

	if len(accepted) == 0 {
		e.Reasons = append(e.Reasons, ReasonEmptyBank)
		return e
	}
	correct, _ := content.Partition(accepted)
	if len(correct) == 0 {
		e.Reasons = append(e.Reasons, ReasonNoCorrectItems)
	}
	if len(accepted) < rc.ItemCount {
		e.Reasons = append(e.Reasons, ReasonBankTooSmall)
	}
	if len(e.Reasons) == 0 {
		return nil
	}
	return e
}

// sample draws n items without replacement using a partial Fisher-Yates
// shuffle over a copy of pool.
func sample(r *rand.Rand, pool []content.Item, n int) []content.Item {
	n = min(n, len(pool))
	if n <= 0 {
		return nil
	}
	work := make([]content.Item, len(pool))
	copy(work, pool)
	for i := 0; i < n; i++ {
		j := i + r.IntN(len(work)-i)
		work[i], work[j] = work[j], work[i]
	}
	return work[:n]
}

func prepare(it content.Item, role Role) PreparedItem {
	p := PreparedItem{
		ID:        it.ID,
		Text:      it.Text,
		IsCorrect: it.IsCorrect,
		ImageURL:  it.ImageURL,
		Type:      it.Type,
		RuleTag:   it.Tag(),
		Role:      role,
	}
	if len(it.Metadata) > 0 {
		p.Metadata = make(map[string]any, len(it.Metadata))
		for k, v := range it.Metadata {
			p.Metadata[k] = v
		}
	}
	return p
}

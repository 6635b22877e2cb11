package dataset

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/abhisek/missionkit/internal/content"
	"github.com/abhisek/missionkit/internal/mission"
)

func makeBank(correct, distractors int, typ content.ItemType) []content.Item {
	var bank []content.Item
	for i := 0; i < correct; i++ {
		bank = append(bank, content.Item{
			ID: fmt.Sprintf("c%d", i), Text: fmt.Sprintf("right-%d", i),
			IsCorrect: true, Type: typ, RuleTag: "plural",
		})
	}
	for i := 0; i < distractors; i++ {
		bank = append(bank, content.Item{
			ID: fmt.Sprintf("d%d", i), Text: fmt.Sprintf("wrong-%d", i),
			Type: typ, Metadata: map[string]any{"rule": "spelling"},
		})
	}
	return bank
}

func resolved(gt mission.GameType, itemCount, pct float64) mission.ResolvedConfig {
	return mission.NewResolver(nil).Resolve(mission.MissionConfig{
		Tunables: mission.Tunables{
			ItemCount:         mission.Float(itemCount),
			DistractorPercent: mission.Float(pct),
		},
	}, gt)
}

func TestBuild_BackfillsDistractorDeficit(t *testing.T) {
	b := NewBuilder(WithSeed(1))
	ds, err := b.Build(makeBank(10, 2, content.TypeWord), resolved(mission.GameWordCatcher, 10, 30))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if ds.Len() != 10 || ds.CorrectCount != 8 || ds.DistractorCount != 2 {
		t.Errorf("len %d, correct %d, distractors %d; want 10, 8, 2", ds.Len(), ds.CorrectCount, ds.DistractorCount)
	}
	if ds.TargetDistractors != 3 || ds.DistractorDeficit != 1 || ds.Backfilled != 1 {
		t.Errorf("target %d, deficit %d, backfilled %d; want 3, 1, 1", ds.TargetDistractors, ds.DistractorDeficit, ds.Backfilled)
	}

	roles := map[Role]int{}
	for _, it := range ds.Items {
		roles[it.Role]++
	}
	want := map[Role]int{RoleCorrect: 7, RoleBackfill: 1, RoleDistractor: 2}
	if !reflect.DeepEqual(roles, want) {
		t.Errorf("roles = %v, want %v", roles, want)
	}
}

func TestBuild_RatioInvariant(t *testing.T) {
	tests := []struct {
		name        string
		correct     int
		distractors int
		itemCount   float64
		pct         float64
		wantSize    int
		wantD       int
	}{
		{"plenty", 30, 30, 20, 40, 20, 8},
		{"no distractors", 12, 0, 10, 50, 10, 0},
		{"short on correct", 3, 10, 10, 30, 6, 3},
		{"short on both", 4, 1, 10, 30, 5, 1},
		{"zero percent", 10, 10, 5, 0, 5, 0},
		{"rounding down", 20, 20, 7, 30, 7, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := resolved(mission.GameWordCatcher, tt.itemCount, tt.pct)
			ds, err := NewBuilder(WithSeed(7)).Build(makeBank(tt.correct, tt.distractors, content.TypeWord), rc)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}

			if ds.CorrectCount+ds.DistractorCount != ds.Len() {
				t.Errorf("correct %d + distractors %d != len %d", ds.CorrectCount, ds.DistractorCount, ds.Len())
			}
			if ds.Len() != tt.wantSize {
				t.Errorf("len = %d, want %d", ds.Len(), tt.wantSize)
			}
			if ds.DistractorCount != tt.wantD {
				t.Errorf("distractors = %d, want %d", ds.DistractorCount, tt.wantD)
			}

			correct := 0
			for _, it := range ds.Items {
				if it.IsCorrect {
					correct++
				}
			}
			if correct != ds.CorrectCount {
				t.Errorf("%d items marked correct, CorrectCount = %d", correct, ds.CorrectCount)
			}
		})
	}
}

func TestBuild_NoReplacement(t *testing.T) {
	ds, err := NewBuilder(WithSeed(3)).Build(makeBank(20, 20, content.TypeWord), resolved(mission.GameWordCatcher, 30, 50))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	seen := map[string]bool{}
	for _, it := range ds.Items {
		if seen[it.ID] {
			t.Errorf("duplicate %s", it.ID)
		}
		seen[it.ID] = true
	}
}

func TestBuild_EmptyCorrectPool(t *testing.T) {
	_, err := NewBuilder().Build(makeBank(0, 5, content.TypeWord), resolved(mission.GameWordCatcher, 5, 30))

	var cie *ContentInsufficientError
	if !errors.As(err, &cie) {
		t.Fatalf("err = %v, want *ContentInsufficientError", err)
	}
	if want := []Reason{ReasonNoCorrectItems}; !reflect.DeepEqual(cie.Reasons, want) {
		t.Errorf("reasons = %v, want %v", cie.Reasons, want)
	}
}

func TestBuild_FiltersByVariantItemTypes(t *testing.T) {
	bank := append(makeBank(5, 0, content.TypeLocation), makeBank(5, 0, content.TypeWord)...)
	rc := resolved(mission.GameMapExplorer, 10, 0)

	ds, err := NewBuilder(WithSeed(9)).Build(bank, rc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if ds.Len() != 5 {
		t.Errorf("len = %d, want 5", ds.Len())
	}
	for _, it := range ds.Items {
		if it.Type != content.TypeLocation {
			t.Errorf("item %s has type %s", it.ID, it.Type)
		}
	}
}

func TestBuild_NonDistractorGameIgnoresDistractors(t *testing.T) {
	bank := makeBank(6, 6, content.TypeImageWordPair)
	ds, err := NewBuilder(WithSeed(2)).Build(bank, resolved(mission.GameImageMatch, 6, 50))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if ds.CorrectCount != 6 || ds.DistractorCount != 0 {
		t.Errorf("correct %d, distractors %d; want 6, 0", ds.CorrectCount, ds.DistractorCount)
	}
}

func TestBuild_SeededIsReproducible(t *testing.T) {
	bank := makeBank(20, 20, content.TypeWord)
	rc := resolved(mission.GameWordCatcher, 10, 30)

	a, err := NewBuilder(WithSeed(42)).Build(bank, rc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	b, err := NewBuilder(WithSeed(42)).Build(bank, rc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different datasets")
	}
}

func TestBuild_PreparedItemsAreDetached(t *testing.T) {
	bank := makeBank(1, 1, content.TypeWord)
	ds, err := NewBuilder(WithSeed(1)).Build(bank, resolved(mission.GameWordCatcher, 2, 50))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, it := range ds.Items {
		if it.Metadata != nil {
			it.Metadata["rule"] = "changed"
		}
	}
	if got := bank[1].Metadata["rule"]; got != "spelling" {
		t.Errorf("bank metadata changed to %v", got)
	}

	for _, it := range ds.Items {
		want := "plural"
		if !it.IsCorrect {
			want = "spelling"
		}
		if it.RuleTag != want {
			t.Errorf("item %s rule tag = %q, want %q", it.ID, it.RuleTag, want)
		}
	}
}

func TestValidate(t *testing.T) {
	rc := resolved(mission.GameWordCatcher, 10, 30)

	tests := []struct {
		name string
		bank []content.Item
		want []Reason
	}{
		{"ok", makeBank(8, 4, content.TypeWord), nil},
		{"empty", nil, []Reason{ReasonEmptyBank}},
		{"wrong types only", makeBank(10, 0, content.TypeSentence), []Reason{ReasonEmptyBank}},
		{"no correct", makeBank(0, 12, content.TypeWord), []Reason{ReasonNoCorrectItems}},
		{"too small", makeBank(3, 2, content.TypeWord), []Reason{ReasonBankTooSmall}},
		{"no correct and too small", makeBank(0, 3, content.TypeWord), []Reason{ReasonNoCorrectItems, ReasonBankTooSmall}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.bank, rc)
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			var cie *ContentInsufficientError
			if !errors.As(err, &cie) {
				t.Fatalf("err = %v, want *ContentInsufficientError", err)
			}
			if !reflect.DeepEqual(cie.Reasons, tt.want) {
				t.Errorf("reasons = %v, want %v", cie.Reasons, tt.want)
			}
			if len(cie.Messages()) != len(tt.want) {
				t.Errorf("messages = %q", cie.Messages())
			}
			if !cie.Has(tt.want[0]) {
				t.Errorf("Has(%v) = false", tt.want[0])
			}
		})
	}
}

func TestReasonMessagesAreDistinct(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range []Reason{ReasonEmptyBank, ReasonNoCorrectItems, ReasonBankTooSmall} {
		msg := r.Message()
		if msg == "" || seen[msg] {
			t.Errorf("reason %v message %q is empty or repeated", r, msg)
		}
		seen[msg] = true
	}
}

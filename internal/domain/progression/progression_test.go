package progression_test

import (
	"testing"

	"github.com/okian/ethos/internal/domain/progression"
	"github.com/okian/ethos/internal/domain/trait"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDiff(t *testing.T) {
	Convey("Given a trait crossing one threshold", t, func() {
		res := progression.Diff(trait.Snapshot{"courage": 40}, trait.Snapshot{"courage": 60})

		Convey("Then exactly one milestone at 50 fires", func() {
			So(res.Deltas, ShouldResemble, progression.Deltas{"courage": 20})
			So(res.Milestones, ShouldHaveLength, 1)
			m := res.Milestones[0]
			So(m.Trait, ShouldEqual, "courage")
			So(m.Threshold, ShouldEqual, 50)
			So(m.Value, ShouldEqual, 60)
			So(m.Rewards.XP, ShouldEqual, 100)
			So(m.Rewards.Credits, ShouldEqual, 250)
			So(m.Rewards.Unlocks, ShouldResemble, []string{"courage_intermediate"})
		})

		Convey("Then no unlock fires because 60 is not a tier value", func() {
			So(res.Unlocks, ShouldBeEmpty)
		})
	})

	Convey("Given a trait landing exactly on 50", t, func() {
		res := progression.Diff(trait.Snapshot{"wisdom": 49}, trait.Snapshot{"wisdom": 50})

		Convey("Then both a milestone and an unlock fire", func() {
			So(res.Milestones, ShouldHaveLength, 1)
			So(res.Milestones[0].Threshold, ShouldEqual, 50)
			So(res.Unlocks, ShouldHaveLength, 1)
			u := res.Unlocks[0]
			So(u.ID, ShouldEqual, "wisdom_intermediate")
			So(u.Tier, ShouldEqual, progression.TierIntermediate)
			So(u.Level, ShouldEqual, trait.Proficient)
			So(u.Ability, ShouldEqual, "Proficient Wisdom")
			So(u.Effects, ShouldResemble, []string{"+5% experience gained", "+5% spell efficiency"})
		})
	})

	Convey("Given an unchanged snapshot", t, func() {
		res := progression.Diff(trait.Snapshot{"a": 10}, trait.Snapshot{"a": 10})

		Convey("Then nothing is produced", func() {
			So(res.Deltas, ShouldBeEmpty)
			So(res.Milestones, ShouldBeEmpty)
			So(res.Unlocks, ShouldBeEmpty)
			So(res.Empty(), ShouldBeTrue)
		})
	})

	Convey("Given a jump over several thresholds", t, func() {
		res := progression.Diff(trait.Snapshot{"honesty": 10}, trait.Snapshot{"honesty": 80})

		Convey("Then milestones come out in ascending threshold order", func() {
			So(res.Milestones, ShouldHaveLength, 3)
			So(res.Milestones[0].Threshold, ShouldEqual, 25)
			So(res.Milestones[0].Rewards.Unlocks, ShouldBeEmpty)
			So(res.Milestones[1].Threshold, ShouldEqual, 50)
			So(res.Milestones[2].Threshold, ShouldEqual, 75)
			So(res.Milestones[2].Rewards.Unlocks, ShouldResemble, []string{"honesty_advanced"})
		})
	})

	Convey("Given a trait that is new in the current snapshot", t, func() {
		res := progression.Diff(trait.Snapshot{}, trait.Snapshot{"patience": 25})

		Convey("Then the missing previous value counts as zero", func() {
			So(res.Deltas["patience"], ShouldEqual, 25)
			So(res.Milestones, ShouldHaveLength, 1)
			So(res.Milestones[0].Threshold, ShouldEqual, 25)
		})
	})

	Convey("Given a trait that only exists in the previous snapshot", t, func() {
		res := progression.Diff(trait.Snapshot{"pride": 40}, trait.Snapshot{})

		Convey("Then it is not reported", func() {
			So(res.Empty(), ShouldBeTrue)
		})
	})

	Convey("Given a trait falling onto a tier value", t, func() {
		res := progression.Diff(trait.Snapshot{"wrath": 90}, trait.Snapshot{"wrath": 75})

		Convey("Then the unlock still fires while no milestone does", func() {
			So(res.Milestones, ShouldBeEmpty)
			So(res.Unlocks, ShouldHaveLength, 1)
			So(res.Unlocks[0].Effects, ShouldResemble, []string{"+15% critical damage", "-7.5% defense while enraged"})
		})
	})

	Convey("Given several traits crossing at once", t, func() {
		res := progression.Diff(
			trait.Snapshot{"wisdom": 20, "courage": 20},
			trait.Snapshot{"wisdom": 30, "courage": 30},
		)

		Convey("Then traits are visited in name order", func() {
			So(res.Milestones, ShouldHaveLength, 2)
			So(res.Milestones[0].Trait, ShouldEqual, "courage")
			So(res.Milestones[1].Trait, ShouldEqual, "wisdom")
		})
	})
}

func TestNewUnlock(t *testing.T) {
	Convey("Given a trait without an effect table entry", t, func() {
		u, ok := progression.NewUnlock("quick_wit", 100)

		Convey("Then a generic scaled effect is used", func() {
			So(ok, ShouldBeTrue)
			So(u.Tier, ShouldEqual, progression.TierMaster)
			So(u.Level, ShouldEqual, trait.Master)
			So(u.Ability, ShouldEqual, "Master Quick Wit")
			So(u.Effects, ShouldResemble, []string{"Enhanced quick wit abilities (x2)"})
		})
	})

	Convey("Given a non-tier threshold", t, func() {
		_, ok := progression.NewUnlock("courage", 25)
		So(ok, ShouldBeFalse)
	})

	Convey("Given the tier multipliers", t, func() {
		So(progression.TierIntermediate.Multiplier(), ShouldEqual, 1)
		So(progression.TierAdvanced.Multiplier(), ShouldEqual, 1.5)
		So(progression.TierMaster.Multiplier(), ShouldEqual, 2)
	})
}

func TestTrends(t *testing.T) {
	Convey("Given mixed deltas", t, func() {
		d := progression.Deltas{"courage": 12, "greed": -8, "wisdom": 3}

		Convey("Then the extremes and total are found", func() {
			up, ok := progression.FastestGrowing(d)
			So(ok, ShouldBeTrue)
			So(up, ShouldResemble, progression.Change{Trait: "courage", Delta: 12})

			down, ok := progression.FastestDeclining(d)
			So(ok, ShouldBeTrue)
			So(down, ShouldResemble, progression.Change{Trait: "greed", Delta: -8})

			So(progression.TotalChange(d), ShouldEqual, 23)
		})

		Convey("Then ties resolve to the first name", func() {
			up, _ := progression.FastestGrowing(progression.Deltas{"b": 5, "a": 5})
			So(up.Trait, ShouldEqual, "a")
		})
	})

	Convey("Given no deltas", t, func() {
		tr := progression.TrendsOf(nil)

		Convey("Then no extremes are reported", func() {
			So(tr.FastestGrowing, ShouldBeNil)
			So(tr.FastestDeclining, ShouldBeNil)
			So(tr.TotalChange, ShouldEqual, 0)
		})
	})
}

func TestPredictNextMilestone(t *testing.T) {
	Convey("Given recent deltas averaging at or below zero", t, func() {
		p := progression.PredictNextMilestone("strength", 40, []float64{0, -2, 1})

		Convey("Then no numeric estimate is given", func() {
			So(p.Status, ShouldEqual, progression.StatusNoRecentProgress)
			So(p.EstimatedUpdates, ShouldEqual, 0)
			So(p.NextMilestone, ShouldEqual, 50)
		})
	})

	Convey("Given no samples at all", t, func() {
		p := progression.PredictNextMilestone("strength", 40, nil)
		So(p.Status, ShouldEqual, progression.StatusNoRecentProgress)
	})

	Convey("Given steady growth", t, func() {
		p := progression.PredictNextMilestone("courage", 40, []float64{2, 4, 3})

		Convey("Then the remaining distance is divided by the mean and rounded up", func() {
			So(p.Status, ShouldEqual, progression.StatusOnTrack)
			So(p.AverageDelta, ShouldEqual, 3)
			So(p.Remaining, ShouldEqual, 10)
			So(p.EstimatedUpdates, ShouldEqual, 4)
		})
	})

	Convey("Given a maxed trait", t, func() {
		p := progression.PredictNextMilestone("courage", 100, []float64{5})
		So(p.Status, ShouldEqual, progression.StatusMaxLevel)
	})
}

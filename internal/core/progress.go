package core

// Ratio is the raw saved/target ratio, uncapped. Values above 1 mean the
// goal overflowed its target, which is allowed.
func (g SavingGoal) Ratio() float64 {
	if g.Target.Amount <= 0 {
		return 0
	}
	return float64(g.Saved.Amount) / float64(g.Target.Amount)
}

// Progress is the display percentage, capped at 100. Fractions truncate,
// so 22.5% shows as 22. Integer arithmetic keeps exact percentages exact.
func (g SavingGoal) Progress() int {
	if g.Target.Amount <= 0 || g.Saved.Amount <= 0 {
		return 0
	}
	if g.Saved.Amount >= g.Target.Amount {
		return 100
	}
	return int(g.Saved.Amount * 100 / g.Target.Amount)
}

// Level is one tier of the saving milestones. Thresholds are cumulative
// saved đồng across all goals.
type Level struct {
	Threshold int64
	Name      string
	Icon      string
}

// Saving levels, ascending by threshold. LevelFor depends on this order.
var levels = []Level{
	{Threshold: 0, Name: "Heo Đất Tí Hon", Icon: "🐷"},
	{Threshold: 100_000, Name: "Heo Con Chăm Chỉ", Icon: "🐽"},
	{Threshold: 500_000, Name: "Heo Vàng Khéo Léo", Icon: "✨"},
	{Threshold: 2_000_000, Name: "Heo Bạc Đảm Đang", Icon: "🌸"},
	{Threshold: 5_000_000, Name: "Heo Kim Cương", Icon: "💎"},
	{Threshold: 10_000_000, Name: "Nữ Hoàng Gói Ghém", Icon: "👑"},
}

// Levels returns the milestone table in ascending threshold order.
func Levels() []Level {
	out := make([]Level, len(levels))
	copy(out, levels)
	return out
}

// LevelProgress describes where a saved total sits in the milestone ladder.
type LevelProgress struct {
	Current Level
	// Next is nil at the top tier.
	Next *Level
	// Toward is the linear progress from Current.Threshold to
	// Next.Threshold in [0,1]. At the top tier it is 1.
	Toward float64
}

// LevelFor selects the highest level whose threshold is <= total and the
// progress toward the next one.
func LevelFor(total Money) LevelProgress {
	v := total.Amount
	if v < 0 {
		v = 0
	}
	idx := 0
	for i, l := range levels {
		if v >= l.Threshold {
			idx = i
		}
	}
	lp := LevelProgress{Current: levels[idx]}
	if idx == len(levels)-1 {
		lp.Toward = 1
		return lp
	}
	next := levels[idx+1]
	lp.Next = &next
	span := next.Threshold - levels[idx].Threshold
	if span > 0 {
		lp.Toward = float64(v-levels[idx].Threshold) / float64(span)
	}
	return lp
}

// Quest is a preset small saving action. Completing one contributes its
// amount to the user's primary goal.
type Quest struct {
	ID     string
	Title  string
	Amount Money
}

var quests = []Quest{
	{ID: "skip-milk-tea", Title: "Nhịn trà sữa hôm nay", Amount: VND(30_000)},
	{ID: "cook-lunch", Title: "Tự nấu cơm trưa", Amount: VND(50_000)},
	{ID: "walk-to-market", Title: "Đi bộ ra chợ thay vì xe ôm", Amount: VND(15_000)},
	{ID: "reuse-leftovers", Title: "Tận dụng đồ ăn thừa", Amount: VND(20_000)},
}

// Quests returns the preset quest list.
func Quests() []Quest {
	out := make([]Quest, len(quests))
	copy(out, quests)
	return out
}

// QuestByID finds a preset quest, or false if the id is unknown.
func QuestByID(id string) (Quest, bool) {
	for _, q := range quests {
		if q.ID == id {
			return q, true
		}
	}
	return Quest{}, false
}

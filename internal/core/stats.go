package core

import (
	"math"
	"sort"
	"strings"
	"time"
)

// CategoryAmount is an amount aggregated under one category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// DayAmount is one bucket of the 7-day trend.
type DayAmount struct {
	Day    time.Time // midnight, local calendar day
	Amount Money
}

// inScope is the wallet visibility predicate: family mode shows shared
// expenses only, personal mode shows unshared ones only.
func inScope(e Expense, mode WalletMode) bool {
	return e.FamilyShared == (mode == WalletFamily)
}

// ScopedExpenses filters the list down to the active wallet mode, keeping
// input order.
func ScopedExpenses(expenses []Expense, mode WalletMode) []Expense {
	var out []Expense
	for _, e := range expenses {
		if inScope(e, mode) {
			out = append(out, e)
		}
	}
	return out
}

// SearchExpenses keeps expenses whose note or category contains the query,
// case-insensitively. An empty query keeps everything.
func SearchExpenses(expenses []Expense, query string) []Expense {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return expenses
	}
	var out []Expense
	for _, e := range expenses {
		if strings.Contains(strings.ToLower(e.Note), query) ||
			strings.Contains(strings.ToLower(e.Category), query) {
			out = append(out, e)
		}
	}
	return out
}

// SpentSince sums scoped expenses on or after the lower bound. Zero and
// negative amounts (refunds/credits) never count as spend. A zero `since`
// means no lower bound.
func SpentSince(expenses []Expense, mode WalletMode, since time.Time) Money {
	var total int64
	for _, e := range expenses {
		if !inScope(e, mode) || e.Amount.Amount <= 0 {
			continue
		}
		if !since.IsZero() && e.OccurredAt.Before(since) {
			continue
		}
		total += e.Amount.Amount
	}
	return Money{Amount: total}
}

// StartOfMonth returns midnight on the first of t's calendar month, in t's
// location.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// StartOfISOWeek returns midnight on the Monday of t's ISO week, in t's
// location.
func StartOfISOWeek(t time.Time) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	wd := int(midnight.Weekday())
	if wd == 0 { // Sunday belongs to the week that started six days earlier
		wd = 7
	}
	return midnight.AddDate(0, 0, -(wd - 1))
}

// MonthlySpent is the scoped spend since the start of t's calendar month.
func MonthlySpent(expenses []Expense, mode WalletMode, t time.Time) Money {
	return SpentSince(expenses, mode, StartOfMonth(t))
}

// WeeklySpent is the scoped spend since the start of t's ISO week.
func WeeklySpent(expenses []Expense, mode WalletMode, t time.Time) Money {
	return SpentSince(expenses, mode, StartOfISOWeek(t))
}

// Savings is what remains of the monthly budget, floored at zero.
func Savings(monthlyBudget, monthlySpent Money) Money {
	left := monthlyBudget.Amount - monthlySpent.Amount
	if left < 0 {
		left = 0
	}
	return Money{Amount: left}
}

// CategoryBreakdown groups scoped expenses by category and sums each group.
// Categories appear in first-seen order so charts stay stable across
// re-renders. The sum of all entries equals the unscoped-by-date spend total
// for the same mode.
func CategoryBreakdown(expenses []Expense, mode WalletMode) []CategoryAmount {
	index := make(map[string]int)
	var out []CategoryAmount
	for _, e := range expenses {
		if !inScope(e, mode) || e.Amount.Amount <= 0 {
			continue
		}
		i, ok := index[e.Category]
		if !ok {
			i = len(out)
			index[e.Category] = i
			out = append(out, CategoryAmount{Name: e.Category})
		}
		out[i].Amount.Amount += e.Amount.Amount
	}
	return out
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// WeekTrend buckets scoped spend into exactly seven calendar days,
// [today-6 .. today] inclusive, in today's location. Days without expenses
// are present with a zero amount. Expenses match buckets by calendar date,
// not elapsed hours, so a DST transition inside the window cannot shift an
// expense into a neighboring day.
func WeekTrend(expenses []Expense, mode WalletMode, today time.Time) []DayAmount {
	loc := today.Location()
	start := dayOf(today, loc).AddDate(0, 0, -6)

	out := make([]DayAmount, 7)
	index := make(map[time.Time]int, 7)
	for i := range out {
		out[i].Day = start.AddDate(0, 0, i)
		index[out[i].Day] = i
	}
	for _, e := range expenses {
		if !inScope(e, mode) || e.Amount.Amount <= 0 {
			continue
		}
		if i, ok := index[dayOf(e.OccurredAt, loc)]; ok {
			out[i].Amount.Amount += e.Amount.Amount
		}
	}
	return out
}

// Streak counts consecutive calendar days with at least one expense of any
// scope, walking backward from today. The most recent expense day must be
// today or yesterday; otherwise the streak is 0.
func Streak(expenses []Expense, today time.Time) int {
	loc := today.Location()
	seen := make(map[time.Time]bool)
	for _, e := range expenses {
		seen[dayOf(e.OccurredAt, loc)] = true
	}
	if len(seen) == 0 {
		return 0
	}

	days := make([]time.Time, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	todayDay := dayOf(today, loc)
	yesterday := todayDay.AddDate(0, 0, -1)
	if !days[0].Equal(todayDay) && !days[0].Equal(yesterday) {
		return 0
	}

	streak := 1
	for i := 1; i < len(days); i++ {
		if days[i].Equal(days[i-1].AddDate(0, 0, -1)) {
			streak++
			continue
		}
		break
	}
	return streak
}

// TotalSaved sums the saved amounts across all goals, the input to the
// milestone ladder.
func TotalSaved(goals []SavingGoal) Money {
	var total int64
	for _, g := range goals {
		total += g.Saved.Amount
	}
	return Money{Amount: total}
}

// ExpiringSoon returns pantry items with 0 to 2 whole days left before
// expiry, the window the home screen warns about.
func ExpiringSoon(items []PantryItem, now time.Time) []PantryItem {
	var out []PantryItem
	for _, it := range items {
		daysLeft := int(math.Ceil(it.ExpiresAt.Sub(now).Hours() / 24))
		if daysLeft >= 0 && daysLeft <= 2 {
			out = append(out, it)
		}
	}
	return out
}

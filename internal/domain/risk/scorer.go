package risk

import (
	"strings"

	"github.com/bryanwahyu/automaton-sar/internal/domain/cases"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// MaxScore caps the summed factor points.
const MaxScore = 100

// Assessment is the deterministic case risk score with the factors that fired.
type Assessment struct {
	Score   int      `json:"risk_score"`
	Level   Level    `json:"risk_level"`
	Factors []string `json:"factors"`
}

// profile is everything the factor tables read from a case.
type profile struct {
	count         int
	total         decimal.Decimal
	largest       decimal.Decimal
	nearThreshold int
}

// tier is one (predicate, weight) row. The first matching tier of a table wins.
type tier struct {
	points int
	match  func(profile) bool
	reason func(profile) string
}

type table []tier

var (
	thresholdLow  = decimal.NewFromInt(9000)
	thresholdHigh = decimal.NewFromInt(10000)
)

var volumeTable = table{
	{25, countAbove(50), fixed("Very high transaction volume (50+ transactions)")},
	{20, countAbove(20), fixed("High transaction volume (20+ transactions)")},
	{15, countAbove(10), fixed("Elevated transaction volume (10+ transactions)")},
	{10, countAtLeast(5), fixed("Multiple transactions detected")},
}

var totalTable = table{
	{30, totalAbove(1000000), totalReason("Very large total amount")},
	{25, totalAbove(500000), totalReason("Large total amount")},
	{20, totalAbove(100000), totalReason("Significant total amount")},
	{15, totalAbove(50000), totalReason("Notable total amount")},
	{10, totalAbove(25000), totalReason("Moderate total amount")},
}

var structuringTable = table{
	{30, nearAtLeast(5), nearReason("Strong")},
	{25, nearAtLeast(3), nearReason("Likely")},
	{15, nearAtLeast(2), nearReason("Possible")},
}

var largestTable = table{
	{15, largestAbove(100000), largestReason("Very large individual transaction")},
	{10, largestAbove(50000), largestReason("Large individual transaction")},
	{5, largestAbove(25000), largestReason("Significant individual transaction")},
}

var velocityTable = table{
	{10, countAbove(10), fixed("High transaction velocity")},
	{5, countAtLeast(5), fixed("Elevated transaction velocity")},
}

// factorTables are folded in this order; factor strings follow it.
var factorTables = []table{volumeTable, totalTable, structuringTable, largestTable, velocityTable}

// Score computes the additive risk score of a case. Only the transaction list
// contributes today; absent or non-numeric amounts count as zero.
func Score(in cases.Input) Assessment {
	p := profileOf(in.Transactions)

	total := 0
	factors := []string{}
	for _, tb := range factorTables {
		points, reason, ok := tb.apply(p)
		if !ok {
			continue
		}
		total += points
		factors = append(factors, reason)
	}
	if total > MaxScore {
		total = MaxScore
	}
	return Assessment{Score: total, Level: LevelFor(total), Factors: factors}
}

// LevelFor maps a capped score onto a risk level.
func LevelFor(score int) Level {
	switch {
	case score >= 70:
		return LevelCritical
	case score >= 50:
		return LevelHigh
	case score >= 30:
		return LevelMedium
	default:
		return LevelLow
	}
}

func (tb table) apply(p profile) (int, string, bool) {
	for _, t := range tb {
		if t.match(p) {
			return t.points, t.reason(p), true
		}
	}
	return 0, "", false
}

func profileOf(txns []cases.Transaction) profile {
	p := profile{count: len(txns), total: decimal.Zero, largest: decimal.Zero}
	for i, t := range txns {
		amt := t.Amount()
		p.total = p.total.Add(amt)
		if i == 0 || amt.GreaterThan(p.largest) {
			p.largest = amt
		}
		if amt.GreaterThanOrEqual(thresholdLow) && amt.LessThanOrEqual(thresholdHigh) {
			p.nearThreshold++
		}
	}
	return p
}

func countAbove(n int) func(profile) bool   { return func(p profile) bool { return p.count > n } }
func countAtLeast(n int) func(profile) bool { return func(p profile) bool { return p.count >= n } }
func nearAtLeast(n int) func(profile) bool {
	return func(p profile) bool { return p.nearThreshold >= n }
}

func totalAbove(n int64) func(profile) bool {
	limit := decimal.NewFromInt(n)
	return func(p profile) bool { return p.total.GreaterThan(limit) }
}

func largestAbove(n int64) func(profile) bool {
	limit := decimal.NewFromInt(n)
	return func(p profile) bool { return p.largest.GreaterThan(limit) }
}

func fixed(s string) func(profile) string { return func(profile) string { return s } }

func totalReason(prefix string) func(profile) string {
	return func(p profile) string { return printer.Sprintf("%s (%s)", prefix, Dollars(p.total)) }
}

func largestReason(prefix string) func(profile) string {
	return func(p profile) string { return printer.Sprintf("%s (%s)", prefix, Dollars(p.largest)) }
}

func nearReason(strength string) func(profile) string {
	return func(p profile) string {
		return printer.Sprintf("%s structuring pattern (%d transactions near $10K threshold)", strength, p.nearThreshold)
	}
}

var printer = message.NewPrinter(language.English)

// Dollars renders a whole-dollar amount with thousands separators, e.g. "$76,100".
func Dollars(d decimal.Decimal) string {
	whole := d.Round(0)
	if b := whole.BigInt(); b.IsInt64() {
		return printer.Sprintf("$%d", b.Int64())
	}
	digits := whole.Abs().String()
	var sb strings.Builder
	sb.WriteByte('$')
	if whole.IsNegative() {
		sb.WriteByte('-')
	}
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

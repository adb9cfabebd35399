package priority

import (
	"strconv"
	"strings"

	"github.com/bryanwahyu/automaton-sar/internal/domain/cases"
	"github.com/shopspring/decimal"
)

type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Factor keys used in explanations.
const (
	FactorAmount    = "transaction_amount"
	FactorFrequency = "transaction_frequency"
	FactorAlertType = "alert_type_risk"
	FactorCustomer  = "customer_risk_profile"
	FactorRedFlags  = "red_flag_indicators"
)

// Per-factor caps. They sum to 100.
const (
	MaxAmount    = 30
	MaxFrequency = 20
	MaxAlertType = 25
	MaxCustomer  = 15
	MaxRedFlags  = 10
)

// DefaultAlertTypeScore applies to alert types missing from AlertTypeScores.
const DefaultAlertTypeScore = 10

// AlertTypeScores weights the alert categories analysts can raise.
var AlertTypeScores = map[string]int{
	"Structuring/Smurfing": 20,
	"Layering":             25,
	"PEP Activity":         22,
	"Shell Company":        23,
	"Trade-Based ML":       25,
	"Cryptocurrency":       18,
	"Suspicious Wires":     20,
	"Unusual Activity":     15,
	"New Account Activity": 17,
	"Check Cashing":        12,
	"Unknown":              10,
}

// keyword is a case-insensitive substring of the alert reason and its points.
type keyword struct {
	text   string
	points int
}

var redFlagKeywords = []keyword{
	{"offshore", 3},
	{"cayman", 3},
	{"shell", 3},
	{"layering", 3},
	{"structuring", 3},
	{"smurfing", 3},
	{"immediate", 2},
	{"rapid", 2},
	{"suspicious", 2},
	{"unusual", 2},
	{"threshold", 2},
	{"cash", 1},
	{"wire", 1},
	{"foreign", 1},
	{"cryptocurrency", 2},
	{"pep", 3},
	{"politically exposed", 3},
}

// step is a (minimum, points) row; the first step whose minimum is met wins.
type step struct {
	min    int64
	points int
}

var amountSteps = []step{
	{500000, 30},
	{250000, 25},
	{100000, 20},
	{50000, 15},
	{25000, 10},
}

var frequencySteps = []step{
	{10, 20},
	{7, 17},
	{5, 14},
	{3, 10},
}

// floorPoints is scored by a non-empty transaction list that meets no step.
const floorPoints = 5

var (
	largeSingleTransaction = decimal.NewFromInt(250000)
	largeSingleBonus       = 5
)

// customerFlag adds points when a KYC attribute marks elevated risk.
type customerFlag struct {
	points int
	match  func(kyc map[string]any) bool
}

var customerFlags = []customerFlag{
	{8, flagged("is_pep")},
	{5, flagged("high_risk_jurisdiction")},
	{4, func(kyc map[string]any) bool {
		return number(kyc, "account_age_months", 12).LessThan(decimal.NewFromInt(6))
	}},
	{3, flagged("complex_ownership")},
	{3, func(kyc map[string]any) bool { return number(kyc, "employees", 1).IsZero() }},
	{2, func(kyc map[string]any) bool { s, _ := kyc["physical_location"].(string); return s == "Virtual Office" }},
}

// emptyKYCScore is charged when no KYC profile exists at all.
const emptyKYCScore = 5

// Breakdown is one factor's score next to its cap.
type Breakdown struct {
	Score int `json:"score"`
	Max   int `json:"max"`
}

// Score is the alert priority with its per-factor breakdown.
type Score struct {
	Priority   Level                `json:"priority"`
	TotalScore int                  `json:"total_score"`
	Breakdown  map[string]Breakdown `json:"breakdown"`
}

// Explanation is a Score plus the threshold table used to classify it.
type Explanation struct {
	Score
	Thresholds map[Level]string `json:"thresholds"`
}

// Thresholds documents the inclusive score ranges per level.
var Thresholds = map[Level]string{
	LevelCritical: "75-100",
	LevelHigh:     "55-74",
	LevelMedium:   "35-54",
	LevelLow:      "0-34",
}

// Calculate scores an alert from its transactions, type, KYC profile and reason.
// Each factor is capped before summing, so the total stays within 0..100.
func Calculate(txns []cases.Transaction, alertType string, kyc map[string]any, alertReason string) Score {
	b := map[string]Breakdown{
		FactorAmount:    {AmountScore(txns), MaxAmount},
		FactorFrequency: {FrequencyScore(txns), MaxFrequency},
		FactorAlertType: {AlertTypeScore(alertType), MaxAlertType},
		FactorCustomer:  {CustomerScore(kyc), MaxCustomer},
		FactorRedFlags:  {RedFlagScore(alertReason), MaxRedFlags},
	}
	total := 0
	for _, f := range b {
		total += f.Score
	}
	return Score{Priority: LevelFor(total), TotalScore: total, Breakdown: b}
}

// Explain runs Calculate and attaches the threshold table.
func Explain(txns []cases.Transaction, alertType string, kyc map[string]any, alertReason string) Explanation {
	thresholds := make(map[Level]string, len(Thresholds))
	for k, v := range Thresholds {
		thresholds[k] = v
	}
	return Explanation{Score: Calculate(txns, alertType, kyc, alertReason), Thresholds: thresholds}
}

func LevelFor(total int) Level {
	switch {
	case total >= 75:
		return LevelCritical
	case total >= 55:
		return LevelHigh
	case total >= 35:
		return LevelMedium
	default:
		return LevelLow
	}
}

func AmountScore(txns []cases.Transaction) int {
	if len(txns) == 0 {
		return 0
	}
	total, largest := decimal.Zero, decimal.Zero
	for i, t := range txns {
		a := t.Amount()
		total = total.Add(a)
		if i == 0 || a.GreaterThan(largest) {
			largest = a
		}
	}
	score := firstStep(amountSteps, func(min int64) bool { return total.GreaterThanOrEqual(decimal.NewFromInt(min)) })
	if largest.GreaterThanOrEqual(largeSingleTransaction) {
		score += largeSingleBonus
	}
	return capAt(score, MaxAmount)
}

func FrequencyScore(txns []cases.Transaction) int {
	if len(txns) == 0 {
		return 0
	}
	n := int64(len(txns))
	return capAt(firstStep(frequencySteps, func(min int64) bool { return n >= min }), MaxFrequency)
}

func AlertTypeScore(alertType string) int {
	if s, ok := AlertTypeScores[alertType]; ok {
		return capAt(s, MaxAlertType)
	}
	return DefaultAlertTypeScore
}

func CustomerScore(kyc map[string]any) int {
	if len(kyc) == 0 {
		return emptyKYCScore
	}
	score := 0
	for _, f := range customerFlags {
		if f.match(kyc) {
			score += f.points
		}
	}
	return capAt(score, MaxCustomer)
}

func RedFlagScore(alertReason string) int {
	lower := strings.ToLower(alertReason)
	if lower == "" {
		return 0
	}
	score := 0
	for _, k := range redFlagKeywords {
		if strings.Contains(lower, k.text) {
			score += k.points
		}
	}
	return capAt(score, MaxRedFlags)
}

// firstStep returns the points of the first step whose minimum satisfies meets.
func firstStep(steps []step, meets func(min int64) bool) int {
	for _, s := range steps {
		if meets(s.min) {
			return s.points
		}
	}
	return floorPoints
}

func capAt(v, max int) int {
	if v > max {
		return max
	}
	if v < 0 {
		return 0
	}
	return v
}

func flagged(key string) func(map[string]any) bool {
	return func(kyc map[string]any) bool { return truthy(kyc[key]) }
}

// truthy interprets loosely typed KYC flags: booleans, "true"/"1"-style strings
// and non-zero numbers.
func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		ok, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && ok
	default:
		d, ok := cases.ParseAmount(v)
		return ok && !d.IsZero()
	}
}

// number reads a numeric KYC attribute, falling back to def when absent or unparseable.
func number(kyc map[string]any, key string, def int64) decimal.Decimal {
	v, ok := kyc[key]
	if !ok {
		return decimal.NewFromInt(def)
	}
	d, ok := cases.ParseAmount(v)
	if !ok {
		return decimal.NewFromInt(def)
	}
	return d
}

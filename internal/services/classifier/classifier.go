package classifier

import (
	"strings"
	"unicode"

	"moneyclip/internal/models"
)

// PaycheckCategory is assigned to every paycheck occurrence
const PaycheckCategory = "paycheck"

// rule assigns category when a label contains one of keywords
type rule struct {
	category string
	keywords []string
}

// expenseRules maps keywords found in a label to a spending category.
// Earlier rules win, so the more specific phrases come first.
var expenseRules = []rule{
	{"debt", []string{"credit card", "loan", "student loan", "car payment", "auto payment"}},
	{"housing", []string{"rent", "mortgage", "hoa", "landlord", "property tax"}},
	{"utilities", []string{"electric", "power", "water", "gas bill", "sewer", "trash", "internet", "wifi", "phone", "mobile"}},
	{"insurance", []string{"insurance", "premium", "geico", "state farm", "progressive"}},
	{"subscriptions", []string{"netflix", "spotify", "hulu", "subscription", "membership", "gym", "prime"}},
	{"transportation", []string{"fuel", "gasoline", "parking", "transit", "uber", "lyft", "toll"}},
	{"groceries", []string{"grocery", "groceries", "supermarket", "costco", "market"}},
	{"healthcare", []string{"doctor", "dentist", "pharmacy", "medical", "copay", "hospital"}},
	{"education", []string{"tuition", "school", "daycare", "childcare"}},
	{"savings", []string{"savings", "investment", "ira", "401k", "brokerage"}},
}

// incomeRules maps keywords to an income source category
var incomeRules = []rule{
	{"salary", []string{"payroll", "salary", "paycheck", "direct deposit", "wages", "net pay"}},
	{"freelance", []string{"freelance", "invoice", "contract", "consulting", "commission"}},
	{"refund", []string{"refund", "rebate", "cashback", "cash back", "reimbursement"}},
	{"investment", []string{"dividend", "interest", "capital gain"}},
	{"gift", []string{"gift", "birthday"}},
}

// OtherCategory is used when no rule matches
const OtherCategory = "other"

// CategorizeExpense infers a spending category from an expense label
func CategorizeExpense(label string) string {
	return match(label, expenseRules)
}

// CategorizeIncome infers an income source from an income label
func CategorizeIncome(label string) string {
	return match(label, incomeRules)
}

// Categorize fills in the category of each event that lacks one. Paychecks
// always carry PaycheckCategory.
func Categorize(events []models.CashEvent) []models.CashEvent {
	for i := range events {
		e := &events[i]
		switch {
		case e.Kind == models.EventPaycheck:
			e.Category = PaycheckCategory
		case strings.TrimSpace(e.Category) != "":
			e.Category = strings.ToLower(strings.TrimSpace(e.Category))
		case e.IsIncome():
			e.Category = CategorizeIncome(e.Label)
		default:
			e.Category = CategorizeExpense(e.Label)
		}
	}
	return events
}

func match(label string, rules []rule) string {
	text := normalize(label)
	if strings.TrimSpace(text) == "" {
		return OtherCategory
	}
	for _, r := range rules {
		if containsAny(text, r.keywords) {
			return r.category
		}
	}
	return OtherCategory
}

// normalize lowercases a label and turns punctuation into spaces, padding
// the result so keywords can be matched at word starts ("rent" must not
// match "parent").
func normalize(label string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, label)
	return " " + mapped + " "
}

// containsAny checks if normalized text has a word starting with any keyword
func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, " "+kw) {
			return true
		}
	}
	return false
}

// Package risk implements the deterministic fraud-risk scorer applied to
// every submitted report. Scoring is a pure summation over fixed keyword
// lists and heuristics; rule evaluation order only affects the order of the
// generated reasons, never the numeric score.
package risk

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/check-vero/apiserver/types"
)

// Input is the report content fed to the scorer. PhoneNumber and
// EmailAddress are optional; their absence is valid input.
type Input struct {
	Description  string
	PhoneNumber  string
	EmailAddress string
}

// Rule weights.
const (
	weightHighKeyword   = 3
	weightMediumKeyword = 1
	weightTollFree      = 1
	weightHiddenCaller  = 2
	weightBadShape      = 1
	weightDisposable    = 3
	weightFreemail      = 1
	weightTyposquat     = 4
	weightClickCombo    = 2
	weightMoneyPressure = 3
	weightSensitive     = 4
	weightUrgency       = 2
)

// Verdict thresholds, checked highest first.
const (
	highThreshold   = 8
	mediumThreshold = 4
)

var highRiskKeywords = []string{
	"verify your account",
	"verify account",
	"account suspended",
	"suspended",
	"click now",
	"wire transfer",
	"gift card",
	"lottery",
	"inheritance",
	"you have won",
	"prize",
	"winner",
	"arrest warrant",
}

var mediumRiskKeywords = []string{
	"urgent",
	"immediately",
	"limited time",
	"congratulations",
	"security alert",
	"final notice",
	"refund",
	"guaranteed",
	"risk-free",
	"expires",
}

var tollFreePrefixes = []string{"800", "888", "877", "866", "855", "844", "833"}

var disposableEmailDomains = []string{
	"tempmail",
	"10minutemail",
	"guerrillamail",
	"mailinator",
	"yopmail",
	"trashmail",
}

var freemailDomains = []string{
	"gmail.com",
	"yahoo.com",
	"hotmail.com",
	"outlook.com",
	"aol.com",
}

var brandDomains = []string{
	"paypal.com",
	"amazon.com",
	"apple.com",
	"google.com",
	"microsoft.com",
	"netflix.com",
}

var clickCompanions = []string{"link", "here", "now", "urgent"}

var moneyWords = []string{"account", "bank", "payment", "money", "funds", "card"}

var pressureWords = []string{"suspend", "verify", "confirm", "expire", "lock"}

var sensitiveTerms = []string{
	"ssn",
	"social security",
	"password",
	"pin code",
	"credit card number",
	"date of birth",
}

var urgencyPhrases = []string{
	"act now",
	"right away",
	"within 24 hours",
	"before it's too late",
}

// Permissive international phone shape: optional "+" followed by 8-16 digits
// with spacing, dashes, dots, or parentheses allowed.
var phoneShape = regexp.MustCompile(`^\+?[0-9()\s.-]+$`)

type scorer struct {
	score     int
	reasons   []string
	breakdown types.ScoreBreakdown
}

func (s *scorer) add(bucket *int, weight int, reason string) {
	s.score += weight
	*bucket += weight
	s.reasons = append(s.reasons, reason)
}

// Analyze scores the given report content and produces a risk verdict.
// It is pure, deterministic, and never fails.
func Analyze(in Input) types.RiskVerdict {
	description := strings.ToLower(in.Description)

	s := &scorer{reasons: []string{}}

	for _, keyword := range highRiskKeywords {
		if strings.Contains(description, keyword) {
			s.add(&s.breakdown.Keywords, weightHighKeyword,
				fmt.Sprintf("Contains suspicious keyword: '%s'", keyword))
		}
	}

	mediumMatches := 0
	for _, keyword := range mediumRiskKeywords {
		if strings.Contains(description, keyword) {
			mediumMatches++
			s.score += weightMediumKeyword
			s.breakdown.Keywords += weightMediumKeyword
		}
	}
	if mediumMatches > 2 {
		s.reasons = append(s.reasons, "Multiple suspicious indicators present")
	}

	if in.PhoneNumber != "" {
		scorePhone(s, in.PhoneNumber)
	}
	if in.EmailAddress != "" {
		scoreEmail(s, in.EmailAddress)
	}
	scoreContext(s, description)

	s.breakdown.Total = s.score
	return verdict(s)
}

func scorePhone(s *scorer, phoneNumber string) {
	number := strings.ToLower(strings.TrimSpace(phoneNumber))

	if hasTollFreePrefix(number) {
		s.add(&s.breakdown.Phone, weightTollFree,
			"Toll-free number pattern often used in scam campaigns")
	}
	if strings.HasPrefix(number, "unknown") || strings.HasPrefix(number, "blocked") {
		s.add(&s.breakdown.Phone, weightHiddenCaller,
			"Caller ID is hidden or unknown")
	}
	if !validPhoneShape(number) {
		s.add(&s.breakdown.Phone, weightBadShape,
			"Phone number does not match a valid international format")
	}
}

func hasTollFreePrefix(number string) bool {
	digits := digitsOf(number)
	// Strip a leading US country code so "+1 800 ..." matches.
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	for _, prefix := range tollFreePrefixes {
		if strings.HasPrefix(digits, prefix) {
			return true
		}
	}
	return false
}

func validPhoneShape(number string) bool {
	if !phoneShape.MatchString(number) {
		return false
	}
	n := len(digitsOf(number))
	return n >= 8 && n <= 16
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func scoreEmail(s *scorer, emailAddress string) {
	address := strings.ToLower(strings.TrimSpace(emailAddress))
	domain := address
	if at := strings.LastIndex(address, "@"); at >= 0 {
		domain = address[at+1:]
	}

	for _, disposable := range disposableEmailDomains {
		if strings.Contains(domain, disposable) {
			s.add(&s.breakdown.Email, weightDisposable, "Disposable email domain")
			break
		}
	}
	for _, freemail := range freemailDomains {
		if domain == freemail {
			s.add(&s.breakdown.Email, weightFreemail,
				"Free email provider used for business-style contact")
			break
		}
	}
	for _, brand := range brandDomains {
		if domain != brand && strings.Contains(domain, brand) {
			s.add(&s.breakdown.Email, weightTyposquat,
				fmt.Sprintf("Email domain imitates %s", brand))
			break
		}
	}
}

func scoreContext(s *scorer, description string) {
	if strings.Contains(description, "click") && containsAny(description, clickCompanions) {
		s.add(&s.breakdown.Context, weightClickCombo,
			"Call-to-action link language detected")
	}
	if containsAny(description, moneyWords) && containsAny(description, pressureWords) {
		s.add(&s.breakdown.Context, weightMoneyPressure,
			"Account or payment pressure language detected")
	}
	if containsAny(description, sensitiveTerms) {
		s.add(&s.breakdown.Context, weightSensitive,
			"Requests sensitive personal data")
	}
	if containsAny(description, urgencyPhrases) {
		s.add(&s.breakdown.Context, weightUrgency,
			"Urgency pressure tactics detected")
	}
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func verdict(s *scorer) types.RiskVerdict {
	v := types.RiskVerdict{
		Reasons:        s.reasons,
		ScoreBreakdown: s.breakdown,
	}

	switch {
	case s.score >= highThreshold:
		v.RiskLevel = types.RiskHigh
		v.Recommendation = "HIGH RISK - This appears to be a scam. Do not provide any personal information."
		v.PointsAwarded = 30
		v.ConfidenceScore = capped(90+(s.score-highThreshold)*2, 98)
	case s.score >= mediumThreshold:
		v.RiskLevel = types.RiskMedium
		v.Recommendation = "MEDIUM RISK - Exercise caution. Verify through official channels."
		v.PointsAwarded = 20
		v.ConfidenceScore = capped(75+(s.score-mediumThreshold)*3, 89)
	default:
		v.RiskLevel = types.RiskLow
		v.Recommendation = "LOW RISK - No obvious red flags detected."
		v.PointsAwarded = 10
		v.ConfidenceScore = capped(60+s.score*5, 74)
	}
	return v
}

func capped(value, limit int) int {
	if value > limit {
		return limit
	}
	return value
}

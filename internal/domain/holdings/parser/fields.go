package parser

import "regexp"

var (
	datePattern    = regexp.MustCompile(`\b\d{2}/\d{2}/(?:\d{4}|\d{2})\b`)
	decimalPattern = regexp.MustCompile(`-?\d{1,3}(?:\.\d{3})+,\d+|-?\d+,\d+`)
	keywordPattern = regexp.MustCompile(`\b(CDI|PRE|IPCA)(?:_\d+)?\b`)
)

const ratePattern = `(\d+(?:\.\d{3})*(?:,\d+)?)`

type indexRule struct {
	kind    IndexKind
	pattern *regexp.Regexp
}

// indexRules are tried together and the leftmost match wins; on a tie the
// earlier rule is preferred, so IPCA M D beats plain IPCA.
var indexRules = []indexRule{
	{IndexCDI, regexp.MustCompile(`\bCDI\s*-\s*` + ratePattern)},
	{IndexPRE, regexp.MustCompile(`\bPRE\s+` + ratePattern)},
	{IndexIPCAMD, regexp.MustCompile(`\bIPCA\s+M\s+D\s+` + ratePattern)},
	{IndexIPCA, regexp.MustCompile(`\bIPCA\s+` + ratePattern)},
}

// slot names a numeric column of the statement.
type slot int

const (
	slotInitialAmount slot = iota
	slotIssueRate
	slotAnnualRate
	slotQuantity
	slotCurrentPrice
	slotGrossValue
	slotTaxes
	slotEffectiveTaxRate
	slotNetValue
	slotPortfolioShare
	slotMonthReturn
	slotSinceInception
)

// Positional layouts: the n-th decimal of a line fills the n-th slot. Titles
// whose benchmark rate was printed next to the keyword lose the rate columns.
var (
	titleIndexed = []slot{
		slotInitialAmount, slotQuantity, slotCurrentPrice, slotGrossValue, slotTaxes,
		slotEffectiveTaxRate, slotNetValue, slotPortfolioShare, slotMonthReturn, slotSinceInception,
	}
	titlePlain = []slot{
		slotInitialAmount, slotIssueRate, slotAnnualRate, slotQuantity, slotCurrentPrice,
		slotGrossValue, slotTaxes, slotEffectiveTaxRate, slotNetValue, slotPortfolioShare,
		slotMonthReturn, slotSinceInception,
	}
	fundColumns = []slot{
		slotInitialAmount, slotQuantity, slotCurrentPrice, slotGrossValue, slotTaxes,
		slotEffectiveTaxRate, slotNetValue, slotPortfolioShare, slotMonthReturn, slotSinceInception,
	}
)

// Fields is everything decoded from the numeric part of a data line.
type Fields struct {
	Layout    Layout
	Dates     Dates
	Index     *Index
	Values    Values
	DateCount int
}

type span struct{ start, end int }

func (s span) overlaps(start, end int) bool {
	return start < s.end && end > s.start
}

// DecodeFields extracts dates, the benchmark index and the positional numeric
// columns of a data line.
func DecodeFields(text string) Fields {
	var f Fields

	dates := datePattern.FindAllStringIndex(text, -1)
	f.DateCount = len(dates)

	searchFrom := 0
	if len(dates) > 0 {
		searchFrom = dates[0][1]
	}
	index, rateSpan := findIndex(text, searchFrom)

	var decimals []*float64
	for _, loc := range decimalPattern.FindAllStringIndex(text, -1) {
		if rateSpan != nil && rateSpan.overlaps(loc[0], loc[1]) {
			continue
		}
		decimals = append(decimals, ParseDecimal(text[loc[0]:loc[1]]))
	}

	table := fundColumns
	if len(dates) >= 3 {
		f.Layout = LayoutTitle
		f.Dates = Dates{
			Emissao:    ParseDate(text[dates[0][0]:dates[0][1]]),
			Aplicacao:  ParseDate(text[dates[1][0]:dates[1][1]]),
			Vencimento: ParseDate(text[dates[2][0]:dates[2][1]]),
		}
		table = titlePlain
		if rateSpan != nil {
			table = titleIndexed
		}
	} else {
		f.Layout = LayoutFund
		if len(dates) > 0 {
			f.Dates.Aplicacao = ParseDate(text[dates[0][0]:dates[0][1]])
		}
	}

	var issueRate, annualRate *float64
	for i, s := range table {
		if i >= len(decimals) {
			break
		}
		switch s {
		case slotIssueRate:
			issueRate = decimals[i]
		case slotAnnualRate:
			annualRate = decimals[i]
		default:
			assign(&f.Values, s, decimals[i])
		}
	}

	if issueRate != nil || annualRate != nil {
		if index == nil {
			index = &Index{}
		}
		index.IssueRate = issueRate
		index.AnnualRate = annualRate
	}
	f.Index = index
	return f
}

// findIndex looks for a benchmark with its rate at or after offset. When none
// is printed with a rate, a bare keyword still sets the kind and the returned
// span is nil.
func findIndex(text string, offset int) (*Index, *span) {
	tail := text[offset:]

	var (
		best     indexRule
		bestLoc  []int
		bestRule = -1
	)
	for i, rule := range indexRules {
		loc := rule.pattern.FindStringSubmatchIndex(tail)
		if loc == nil {
			continue
		}
		if bestRule < 0 || loc[0] < bestLoc[0] {
			best, bestLoc, bestRule = rule, loc, i
		}
	}

	if bestRule >= 0 {
		rate := ParseDecimal(tail[bestLoc[2]:bestLoc[3]])
		idx := &Index{Kind: best.kind, IssueRate: rate}
		if best.kind != IndexCDI {
			idx.AnnualRate = rate
		}
		return idx, &span{start: offset + bestLoc[0], end: offset + bestLoc[1]}
	}

	if m := keywordPattern.FindStringSubmatch(tail); m != nil {
		return &Index{Kind: IndexKind(m[1])}, nil
	}
	return nil, nil
}

func assign(v *Values, s slot, val *float64) {
	switch s {
	case slotInitialAmount:
		v.InitialAmount = val
	case slotQuantity:
		v.Quantity = val
	case slotCurrentPrice:
		v.CurrentPrice = val
	case slotGrossValue:
		v.GrossValue = val
	case slotTaxes:
		v.Taxes = val
	case slotEffectiveTaxRate:
		v.EffectiveTaxRate = val
	case slotNetValue:
		v.NetValue = val
	case slotPortfolioShare:
		v.PortfolioSharePct = val
	case slotMonthReturn:
		v.MonthReturnPct = val
	case slotSinceInception:
		v.SinceInceptionPct = val
	}
}

// Package parser reconstructs the detailed investment-position table of a
// brokerage statement from position-tagged text tokens.
//
// The pipeline is strictly forward: tokens are grouped into lines, lines are
// classified against the current section, names are resolved from a three-line
// window and numeric fields are decoded into Records. Nothing in this package
// reads files or talks to external services; tokens come from a TokenSource.
package parser

// Token is a single positioned word on a page.
type Token struct {
	Page int     `json:"page"`
	Text string  `json:"text"`
	X0   float64 `json:"x0"`
	Top  float64 `json:"top"`
}

// Line is the text of all tokens sharing a quantized vertical position.
type Line struct {
	Page int
	Y    float64
	Text string
}

// Section identifies the statement table a line belongs to.
type Section string

const (
	SectionNone             Section = ""
	SectionPosFixado        Section = "POS_FIXADO"
	SectionPreFixado        Section = "PRE_FIXADO"
	SectionJuroRealInflacao Section = "JURO_REAL_INFLACAO"
	SectionMultimercados    Section = "MULTIMERCADOS"
)

// Groups a section can belong to.
const (
	GroupRendaFixa    = "renda_fixa"
	GroupAlternativos = "alternativos"
)

// sectionHeaders maps the literal header text printed on the statement.
var sectionHeaders = map[string]Section{
	"PÓS-FIXADO":           SectionPosFixado,
	"PRÉ-FIXADO":           SectionPreFixado,
	"JURO REAL - INFLAÇÃO": SectionJuroRealInflacao,
	"MULTIMERCADOS":        SectionMultimercados,
}

// Sections lists every known section in statement order.
var Sections = []Section{
	SectionPosFixado,
	SectionPreFixado,
	SectionJuroRealInflacao,
	SectionMultimercados,
}

// Group returns the asset group of the section, or "" for SectionNone.
func (s Section) Group() string {
	switch s {
	case SectionPosFixado, SectionPreFixado, SectionJuroRealInflacao:
		return GroupRendaFixa
	case SectionMultimercados:
		return GroupAlternativos
	default:
		return ""
	}
}

// Label returns the header text printed on the statement.
func (s Section) Label() string {
	for text, sec := range sectionHeaders {
		if sec == s {
			return text
		}
	}
	return ""
}

// Key is the lower-case identifier used in hierarchical exports.
func (s Section) Key() string {
	switch s {
	case SectionPosFixado:
		return "pos_fixado"
	case SectionPreFixado:
		return "pre_fixado"
	case SectionJuroRealInflacao:
		return "juro_real_inflacao"
	case SectionMultimercados:
		return "multimercados"
	default:
		return ""
	}
}

// Layout is the positional layout a data line was decoded with.
type Layout string

const (
	LayoutTitle Layout = "TITULO"
	LayoutFund  Layout = "FUNDO"
)

// IndexKind is the benchmark a fixed-income title is indexed to.
type IndexKind string

const (
	IndexNone   IndexKind = ""
	IndexCDI    IndexKind = "CDI"
	IndexPRE    IndexKind = "PRE"
	IndexIPCA   IndexKind = "IPCA"
	IndexIPCAMD IndexKind = "IPCA_MD"
)

// Index describes the benchmark and the rates printed next to it.
type Index struct {
	Kind       IndexKind `json:"kind"`
	IssueRate  *float64  `json:"issue_rate"`
	AnnualRate *float64  `json:"annual_rate"`
}

// Dates holds ISO (YYYY-MM-DD) dates; absent or invalid dates are nil.
type Dates struct {
	Emissao    *string `json:"emissao"`
	Aplicacao  *string `json:"aplicacao"`
	Vencimento *string `json:"vencimento"`
}

// Values holds the decoded numeric columns. Percentages are plain
// percentages (1,25 means 1.25%).
type Values struct {
	InitialAmount     *float64 `json:"initial_amount"`
	Quantity          *float64 `json:"quantity"`
	CurrentPrice      *float64 `json:"current_price"`
	GrossValue        *float64 `json:"gross_value"`
	Taxes             *float64 `json:"taxes"`
	EffectiveTaxRate  *float64 `json:"effective_tax_rate"`
	NetValue          *float64 `json:"net_value"`
	PortfolioSharePct *float64 `json:"portfolio_share_pct"`
	MonthReturnPct    *float64 `json:"month_return_pct"`
	SinceInceptionPct *float64 `json:"since_inception_pct"`
}

// Record is one position row. It is built once per data line and never
// modified afterwards.
type Record struct {
	Section Section `json:"section"`
	Page    int     `json:"page"`
	Layout  Layout  `json:"layout"`
	Name    *string `json:"name"`
	Dates   Dates   `json:"dates"`
	Index   *Index  `json:"index"`
	Values  Values  `json:"values"`
}

// Stats counts what the extractor saw.
type Stats struct {
	Pages    int `json:"pages"`
	Lines    int `json:"lines"`
	Headers  int `json:"headers"`
	Noise    int `json:"noise"`
	Data     int `json:"data"`
	NameOnly int `json:"name_only"`
	Dropped  int `json:"dropped"`
	Records  int `json:"records"`

	Continuations int `json:"continuations"`
}

// Result is the output of an extraction run.
type Result struct {
	Records []Record `json:"records"`
	Stats   Stats    `json:"stats"`
}

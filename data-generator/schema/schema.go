// Description: This package provides the schema of the synthetic Employee-Month dataset
// and the fixed categorical domains its columns are sampled from.
// We assume that all textual information is in English, so we only handle ASCII characters.
package schema

import (
	"fmt"
	"strings"

	"csb/enginebench/control/constants"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

type ColumnType int

const (
	Text ColumnType = iota
	Int64
	Float64
)

// SQLType returns the column type as declared in the SQLite table
func (t ColumnType) SQLType() string {
	switch t {
	case Int64:
		return "INTEGER"
	case Float64:
		return "REAL"
	default:
		return "TEXT"
	}
}

func (t ColumnType) arrowType() arrow.DataType {
	switch t {
	case Int64:
		return arrow.PrimitiveTypes.Int64
	case Float64:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

type Column struct {
	Name string
	Type ColumnType
}

// Columns is the fixed dataset layout, in file order
var Columns = []Column{
	{"employee_id", Text},
	{"date_range", Text},
	{"fullname", Text},
	{"state_of_residence", Text},
	{"performance_score", Float64},
	{"top_performer", Text},
	{"top_talent", Text},
	{"last_12_months", Float64},
	{"flag_current", Float64},
	{"leave_reason", Text},
	{"leave_reason_detail", Text},
	{"regretted_status", Text},
	{"flag_leave", Int64},
	{"flag_hire", Int64},
	{"company_name", Text},
	{"function", Text},
	{"employee_type", Text},
	{"year", Text},
	{"marital_status", Text},
	{"gender", Text},
	{"segmentation", Text},
	{"flag_turnover", Int64},
	{"working_percentage", Float64},
	{"days_in_month", Int64},
	{"days_worked", Int64},
	{"num_of_children", Text},
	{"has_child", Int64},
	{"education_level", Text},
	{"year-month", Text},
	{"active_working_days", Float64},
	{"birth_year", Int64},
	{"age", Int64},
	{"age_group", Text},
	{"seniority_start_yearmonth", Text},
	{"tenure", Float64},
	{"tenure_group", Text},
	{"is_promoted", Float64},
	{"title", Text},
	{"grade", Text},
	{"survey_date", Text},
	{"survey_q1_answer", Text},
	{"survey_q2_answer", Text},
	{"survey_q3_answer", Text},
	{"survey_willingness_to_change", Text},
	{"survey_emotional_state", Text},
	{"turnover_within_next_6_months", Float64},
	{"turnover_within_next_3_months", Float64},
	{"turnover_in_next_month", Float64},
	{"salary_usd", Float64},
}

// Categorical domains. Every value is drawn uniformly, without reweighting.
var (
	YearMonths          = []string{"2022-01", "2022-02", "2022-03", "2022-04", "2022-05"}
	DateRanges          = YearMonths
	FirstNames          = []string{"Alex", "Sam", "Taylor", "Jordan", "Casey", "Morgan", "Jamie"}
	LastNames           = []string{"Smith", "Brown", "Johnson", "Lee", "Garcia", "Miller", "Davis"}
	States              = []string{"California", "Oregon", "Massachusetts", "New York", "Utah", "Florida"}
	PerformanceScores   = []float64{1.0, 2.0, 3.0, 4.0}
	TopPerformers       = []string{"More Impact Needed", "Performer", "Not Meeting Expectations", "Top Performer"}
	TopTalents          = []string{"Unrated", "Talent", "Top Talent"}
	LeaveReasons        = []string{"Contract Termination - Employee Resignation", "Contract Termination - Employer"}
	LeaveReasonDetails  = []string{"Retirement", "Career Expectation", "Job Dissatisfaction", "Salary and Benefits", "Low Performance"}
	RegrettedStatuses   = []string{"Regretted", "Unregretted"}
	Companies           = []string{"B", "C", "A", "F", "D", "E", "H", "I", "G"}
	Functions           = []string{"Logistics / Supply Chain", "Sales", "Maintenance", "After-Sales Services & Technical Training", "Administrative Affairs"}
	EmployeeTypes       = []string{"Gray-Collar", "White-Collar"}
	Years               = []string{"2022Y", "2023Y", "2024Y"}
	MaritalStatuses     = []string{"Married", "Single"}
	Genders             = []string{"Male", "Female"}
	Segmentations       = []string{"Work in Place", "Hybrid", "Remote"}
	WorkingPercentages  = []float64{0.5, 0.8, 1.0}
	DaysInMonth         = []int64{28, 29, 30, 31}
	NumChildren         = []string{"2.0", "0.0", "1.0", "3+"}
	EducationLevels     = []string{"High School", "Graduate Degree", "Bachelor Degree", "Associate Degree", "Middle School", "Grade School", "Doctoral Degree"}
	AgeGroups           = []string{"40-50", "25-30", "20-25", "50+", "30-35", "35-40", "20-"}
	SeniorityStarts     = []string{"2010-01", "2015-06", "2018-09", "2020-02", "2021-11"}
	TenureGroups        = []string{"10-15 Years", "2-3 Years", "6 Months-", "6-12 Months", "5-10 Years", "1-2 Years", "3-5 Years", "15 Years+"}
	Titles              = []string{"Software Engineer", "Data Engineer", "Analyst", "Team Lead", "Manager", "Director"}
	Grades              = []string{"Officer", "Specialist", "First-Level Management", "Mid-Level Management", "Top Management"}
	SurveyDates         = []string{"2022-01", "2022-02", "2022-03", "2022-04", "2022-06"}
	SurveyAnswers12     = []string{"High", "Very High", "Medium", "I have No idea", "Low"}
	SurveyAnswers3      = []string{"Very High", "Medium", "High", "I have No idea", "Low"}
	SurveyWillingness   = []string{"wishing for change", "satisfied with the situation"}
	SurveyEmotionStates = []string{"negative", "positive", "neutral"}
)

// NoChildren is the num_of_children category for which has_child is 0
const NoChildren = "0.0"

// HasChild derives the has_child flag from the num_of_children category
func HasChild(numOfChildren string) int64 {
	if numOfChildren != NoChildren {
		return 1
	}
	return 0
}

// ColumnNames returns the column names in file order
func ColumnNames() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}

// Lookup returns the column with the given name
func Lookup(name string) (Column, bool) {
	for _, c := range Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// QuoteIdent quotes column names that are not plain SQL identifiers, e.g. "year-month"
func QuoteIdent(name string) string {
	if strings.ContainsAny(name, "- ") {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return name
}

// CreateTableSQL returns the DDL of the destination table for row-oriented loads
func CreateTableSQL(table string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE IF NOT EXISTS %s (\n", table)
	for i, c := range Columns {
		fmt.Fprintf(&sb, "    %s %s", QuoteIdent(c.Name), c.Type.SQLType())
		if i < len(Columns)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(")")
	return sb.String()
}

// ArrowSchema returns the Arrow schema used for the parquet parts
func ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(Columns))
	for i, c := range Columns {
		fields[i] = arrow.Field{Name: c.Name, Type: c.Type.arrowType(), Nullable: false}
	}
	return arrow.NewSchema(fields, nil)
}

// RowBuilder appends single rows to an Arrow record. Columns missing from a row
// fall back to the first value of their domain (or zero for measures). It is
// meant for hand-made fixtures; bulk generation appends whole columns instead.
type RowBuilder struct {
	b *array.RecordBuilder
}

func NewRowBuilder(mem memory.Allocator) *RowBuilder {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &RowBuilder{b: array.NewRecordBuilder(mem, ArrowSchema())}
}

func (rb *RowBuilder) AppendRow(values map[string]any) error {
	for name := range values {
		if _, ok := Lookup(name); !ok {
			return fmt.Errorf("unknown column %q", name)
		}
	}
	for i, c := range Columns {
		v, ok := values[c.Name]
		if !ok {
			v = defaultValue(c)
		}
		switch c.Type {
		case Text:
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("column %s: want string, got %T", c.Name, v)
			}
			rb.b.Field(i).(*array.StringBuilder).Append(s)
		case Int64:
			n, err := toInt64(v)
			if err != nil {
				return fmt.Errorf("column %s: %w", c.Name, err)
			}
			rb.b.Field(i).(*array.Int64Builder).Append(n)
		case Float64:
			f, err := toFloat64(v)
			if err != nil {
				return fmt.Errorf("column %s: %w", c.Name, err)
			}
			rb.b.Field(i).(*array.Float64Builder).Append(f)
		}
	}
	return nil
}

// NewRecord returns the appended rows and resets the builder
func (rb *RowBuilder) NewRecord() arrow.Record {
	return rb.b.NewRecord()
}

func (rb *RowBuilder) Release() {
	rb.b.Release()
}

var defaults = map[string]any{
	"employee_id":        "E000001",
	"date_range":         DateRanges[0],
	"fullname":           FirstNames[0] + " " + LastNames[0],
	"state_of_residence": States[0],
	"performance_score":  PerformanceScores[0],
	"company_name":       Companies[0],
	"function":           Functions[0],
	"employee_type":      EmployeeTypes[0],
	"year":               Years[0],
	"year-month":         YearMonths[0],
	"num_of_children":    NoChildren,
	"last_12_months":     1.0,
	"flag_current":       1.0,
	"days_in_month":      DaysInMonth[0],
	"birth_year":         int64(1990),
	"age":                int64(constants.DEFAULT_REFERENCE_YR - 1990),
	"working_percentage": 1.0,
}

func defaultValue(c Column) any {
	if v, ok := defaults[c.Name]; ok {
		return v
	}
	switch c.Type {
	case Int64:
		return int64(0)
	case Float64:
		return 0.0
	default:
		return ""
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("want integer, got %T", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("want number, got %T", v)
	}
}

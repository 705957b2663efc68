// Description: This package samples the synthetic Employee-Month dataset and writes it as
// sequentially numbered parquet parts. Every column is sampled independently per row,
// except derived columns which are computed from their source column.
package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"csb/enginebench/control/constants"
	"csb/enginebench/data-generator/schema"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

const (
	maxEmployeeNum = 500_000 // employee numbers are drawn from [1, maxEmployeeNum)
	minBirthYear   = 1960
	maxBirthYear   = 2005 // exclusive
	maxTenureYears = 20
	salaryLogMean  = 10.5
	salaryLogSigma = 0.3
)

type Generator struct {
	rg  *rand.Rand
	mem memory.Allocator
}

func NewGenerator(rg *rand.Rand) *Generator {
	return &Generator{
		rg:  rg,
		mem: memory.DefaultAllocator,
	}
}

// Options controls a dataset generation run
type Options struct {
	Dir         string
	NumRows     int
	ChunkSize   int
	Compression string
	Logger      *zap.Logger
}

// DatasetInfo describes the parts found or written in a dataset directory
type DatasetInfo struct {
	Dir     string
	Parts   []string
	Rows    int64
	Skipped bool
	Elapsed time.Duration
}

// ListParts returns the sorted part files of a dataset directory
func ListParts(dir string) ([]string, error) {
	parts, err := filepath.Glob(filepath.Join(dir, constants.PART_FILE_GLOB))
	if err != nil {
		return nil, err
	}
	sort.Strings(parts)
	return parts, nil
}

// PartPath returns the file name of the n-th part
func PartPath(dir string, part int) string {
	return filepath.Join(dir, fmt.Sprintf("%s%06d%s", constants.PART_FILE_PREFIX, part, constants.PART_FILE_EXT))
}

// GenerateDataset writes opts.NumRows rows as parts of at most opts.ChunkSize rows.
// If the directory already holds parts nothing is written.
func (g *Generator) GenerateDataset(ctx context.Context, opts Options) (*DatasetInfo, error) {
	if opts.NumRows <= 0 || opts.ChunkSize <= 0 {
		return nil, fmt.Errorf("invalid row count %d or chunk size %d", opts.NumRows, opts.ChunkSize)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create dataset directory: %w", err)
	}

	existing, err := ListParts(opts.Dir)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		log.Info("dataset already exists, skipping generation",
			zap.String("dir", opts.Dir), zap.Int("parts", len(existing)))
		return &DatasetInfo{Dir: opts.Dir, Parts: existing, Skipped: true}, nil
	}

	log.Info("generating parquet dataset",
		zap.String("rows", humanize.Comma(int64(opts.NumRows))),
		zap.String("chunk", humanize.Comma(int64(opts.ChunkSize))),
		zap.String("dir", opts.Dir))

	info := &DatasetInfo{Dir: opts.Dir}
	start := time.Now()
	for rowsWritten := 0; rowsWritten < opts.NumRows; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := min(opts.ChunkSize, opts.NumRows-rowsWritten)
		rec := g.MakeChunk(n)
		path := PartPath(opts.Dir, len(info.Parts))
		err := WritePart(path, rec, opts.Compression)
		rec.Release()
		if err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}

		rowsWritten += n
		info.Parts = append(info.Parts, path)
		info.Rows += int64(n)
		log.Info("progress",
			zap.String("rows_written", humanize.Comma(int64(rowsWritten))),
			zap.Int("parts", len(info.Parts)))
	}
	info.Elapsed = time.Since(start)
	log.Info("dataset generated",
		zap.Duration("elapsed", info.Elapsed),
		zap.String("dir", opts.Dir),
		zap.Int("parts", len(info.Parts)))
	return info, nil
}

// MakeChunk samples n rows. Columns are drawn one after another from the shared
// random generator, so the output only depends on the seed and the chunk sizes.
func (g *Generator) MakeChunk(n int) arrow.Record {
	rg := g.rg

	empNum := intRange(rg, 1, maxEmployeeNum, n)
	employeeID := make([]string, n)
	for i, e := range empNum {
		employeeID[i] = fmt.Sprintf("E%06d", e)
	}
	yearMonth := choose(rg, schema.YearMonths, n)
	dateRange := choose(rg, schema.DateRanges, n)
	first := choose(rg, schema.FirstNames, n)
	last := choose(rg, schema.LastNames, n)
	fullname := make([]string, n)
	for i := range fullname {
		fullname[i] = first[i] + " " + last[i]
	}
	stateOfResidence := choose(rg, schema.States, n)
	performanceScore := choose(rg, schema.PerformanceScores, n)
	topPerformer := choose(rg, schema.TopPerformers, n)
	topTalent := choose(rg, schema.TopTalents, n)
	last12Months := constant(1.0, n)
	flagCurrent := constant(1.0, n)
	leaveReason := choose(rg, schema.LeaveReasons, n)
	leaveReasonDetail := choose(rg, schema.LeaveReasonDetails, n)
	regrettedStatus := choose(rg, schema.RegrettedStatuses, n)
	flagLeave := intRange(rg, 0, 2, n)
	flagHire := intRange(rg, 0, 2, n)
	flagTurnover := intRange(rg, 0, 2, n)
	companyName := choose(rg, schema.Companies, n)
	function := choose(rg, schema.Functions, n)
	employeeType := choose(rg, schema.EmployeeTypes, n)
	year := choose(rg, schema.Years, n)
	maritalStatus := choose(rg, schema.MaritalStatuses, n)
	gender := choose(rg, schema.Genders, n)
	segmentation := choose(rg, schema.Segmentations, n)
	workingPercentage := choose(rg, schema.WorkingPercentages, n)
	daysInMonth := choose(rg, schema.DaysInMonth, n)
	daysWorked := make([]int64, n)
	activeWorkingDays := make([]float64, n)
	for i := range daysWorked {
		daysWorked[i] = int64(rg.Float64() * float64(daysInMonth[i]))
		activeWorkingDays[i] = float64(daysWorked[i])
	}
	numOfChildren := choose(rg, schema.NumChildren, n)
	hasChild := make([]int64, n)
	for i, c := range numOfChildren {
		hasChild[i] = schema.HasChild(c)
	}
	educationLevel := choose(rg, schema.EducationLevels, n)
	birthYear := intRange(rg, minBirthYear, maxBirthYear, n)
	age := make([]int64, n)
	for i, b := range birthYear {
		age[i] = constants.DEFAULT_REFERENCE_YR - b
	}
	ageGroup := choose(rg, schema.AgeGroups, n)
	seniorityStart := choose(rg, schema.SeniorityStarts, n)
	tenure := make([]float64, n)
	for i := range tenure {
		tenure[i] = rg.Float64() * maxTenureYears
	}
	tenureGroup := choose(rg, schema.TenureGroups, n)
	isPromoted := toFloat(intRange(rg, 0, 2, n))
	title := choose(rg, schema.Titles, n)
	grade := choose(rg, schema.Grades, n)
	surveyDate := choose(rg, schema.SurveyDates, n)
	surveyQ1 := choose(rg, schema.SurveyAnswers12, n)
	surveyQ2 := choose(rg, schema.SurveyAnswers12, n)
	surveyQ3 := choose(rg, schema.SurveyAnswers3, n)
	surveyWillingness := choose(rg, schema.SurveyWillingness, n)
	surveyEmotional := choose(rg, schema.SurveyEmotionStates, n)
	turnover6m := toFloat(intRange(rg, 0, 2, n))
	turnover3m := toFloat(intRange(rg, 0, 2, n))
	turnover1m := toFloat(intRange(rg, 0, 2, n))
	salary := make([]float64, n)
	for i := range salary {
		salary[i] = math.Exp(salaryLogMean + salaryLogSigma*rg.NormFloat64())
	}

	columns := map[string]any{
		"employee_id":                   employeeID,
		"date_range":                    dateRange,
		"fullname":                      fullname,
		"state_of_residence":            stateOfResidence,
		"performance_score":             performanceScore,
		"top_performer":                 topPerformer,
		"top_talent":                    topTalent,
		"last_12_months":                last12Months,
		"flag_current":                  flagCurrent,
		"leave_reason":                  leaveReason,
		"leave_reason_detail":           leaveReasonDetail,
		"regretted_status":              regrettedStatus,
		"flag_leave":                    flagLeave,
		"flag_hire":                     flagHire,
		"company_name":                  companyName,
		"function":                      function,
		"employee_type":                 employeeType,
		"year":                          year,
		"marital_status":                maritalStatus,
		"gender":                        gender,
		"segmentation":                  segmentation,
		"flag_turnover":                 flagTurnover,
		"working_percentage":            workingPercentage,
		"days_in_month":                 daysInMonth,
		"days_worked":                   daysWorked,
		"num_of_children":               numOfChildren,
		"has_child":                     hasChild,
		"education_level":               educationLevel,
		"year-month":                    yearMonth,
		"active_working_days":           activeWorkingDays,
		"birth_year":                    birthYear,
		"age":                           age,
		"age_group":                     ageGroup,
		"seniority_start_yearmonth":     seniorityStart,
		"tenure":                        tenure,
		"tenure_group":                  tenureGroup,
		"is_promoted":                   isPromoted,
		"title":                         title,
		"grade":                         grade,
		"survey_date":                   surveyDate,
		"survey_q1_answer":              surveyQ1,
		"survey_q2_answer":              surveyQ2,
		"survey_q3_answer":              surveyQ3,
		"survey_willingness_to_change":  surveyWillingness,
		"survey_emotional_state":        surveyEmotional,
		"turnover_within_next_6_months": turnover6m,
		"turnover_within_next_3_months": turnover3m,
		"turnover_in_next_month":        turnover1m,
		"salary_usd":                    salary,
	}

	b := array.NewRecordBuilder(g.mem, schema.ArrowSchema())
	defer b.Release()
	for i, c := range schema.Columns {
		switch values := columns[c.Name].(type) {
		case []string:
			b.Field(i).(*array.StringBuilder).AppendValues(values, nil)
		case []int64:
			b.Field(i).(*array.Int64Builder).AppendValues(values, nil)
		case []float64:
			b.Field(i).(*array.Float64Builder).AppendValues(values, nil)
		default:
			panic(fmt.Sprintf("generator: no values sampled for column %q", c.Name))
		}
	}
	return b.NewRecord()
}

// choose draws n values uniformly from domain
func choose[T any](rg *rand.Rand, domain []T, n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = domain[rg.Intn(len(domain))]
	}
	return out
}

// intRange draws n integers uniformly from [lo, hi)
func intRange(rg *rand.Rand, lo, hi int64, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = lo + rg.Int63n(hi-lo)
	}
	return out
}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func toFloat(values []int64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

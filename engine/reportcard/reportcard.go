// Package reportcard grades a student from per-subject marks.
package reportcard

import (
	"context"
	"fmt"
	"time"

	"github.com/compozy/tally/engine/aggregate"
	"github.com/compozy/tally/engine/core"
	"github.com/compozy/tally/engine/format"
	"github.com/compozy/tally/engine/infra/monitoring"
	"github.com/compozy/tally/engine/normalize"
	"github.com/compozy/tally/engine/schema"
	"github.com/compozy/tally/pkg/logger"
)

const (
	Operation       = "generate_report_card"
	DefaultPassMark = 40
	MaxScore        = 100
)

type Mark struct {
	Subject string  `json:"subject" validate:"notblank"`
	Score   float64 `json:"score"   validate:"finite,gte=0,lte=100"`
}

// Student is the typed form of a student record. Marks keep subject order.
type Student struct {
	Name  string `json:"name"  validate:"notblank"`
	Marks []Mark `json:"marks" validate:"required,min=1,unique=Subject,dive"`
}

type ReportCard struct {
	Name           string   `json:"name"`
	TotalMarks     float64  `json:"totalMarks"`
	Percentage     float64  `json:"percentage"`
	Grade          string   `json:"grade"`
	HighestSubject string   `json:"highestSubject"`
	LowestSubject  string   `json:"lowestSubject"`
	PassedSubjects []string `json:"passedSubjects"`
	FailedSubjects []string `json:"failedSubjects"`
	SubjectCount   int      `json:"subjectCount"`
}

var gradeScale = []struct {
	min   float64
	grade string
}{
	{90, "A+"},
	{80, "A"},
	{70, "B"},
	{60, "C"},
	{40, "D"},
}

// Grade maps a percentage to its letter grade.
func Grade(percentage float64) string {
	for _, step := range gradeScale {
		if percentage >= step.min {
			return step.grade
		}
	}
	return "F"
}

type Generator struct {
	passMark       float64
	allowZeroMarks bool
	scoreRange     schema.Range
	rules          schema.Rules
	recorder       monitoring.Recorder
}

type Option func(*Generator)

func WithPassMark(mark float64) Option {
	return func(g *Generator) {
		g.passMark = mark
	}
}

// WithAllowZeroMarks accepts a score of exactly zero, which is rejected by
// default.
func WithAllowZeroMarks(allow bool) Option {
	return func(g *Generator) {
		g.allowZeroMarks = allow
	}
}

func WithRecorder(r monitoring.Recorder) Option {
	return func(g *Generator) {
		if r != nil {
			g.recorder = r
		}
	}
}

func New(opts ...Option) *Generator {
	g := &Generator{
		passMark: DefaultPassMark,
		recorder: monitoring.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.scoreRange = schema.Range{Min: 0, MinExclusive: !g.allowZeroMarks, Max: MaxScore}
	g.rules = schema.Rules{
		{Field: "name", Check: schema.NonEmptyString},
		{Field: "marks", Check: schema.All(schema.NonEmptyObject, schema.EachValue(schema.Between(g.scoreRange)))},
	}
	return g
}

// Execute accepts a loose student record or a Student.
func (g *Generator) Execute(ctx context.Context, input any) (*ReportCard, error) {
	start := time.Now()
	card, err := g.execute(ctx, input)
	g.recorder.RecordOperation(ctx, Operation, time.Since(start), err)
	if err != nil {
		logger.FromContext(ctx).Debug("report card rejected", "operation", Operation, "reason", core.ReasonOf(err), "error", err)
		return nil, err
	}
	return card, nil
}

func (g *Generator) execute(ctx context.Context, input any) (*ReportCard, error) {
	var student Student
	switch v := input.(type) {
	case Student:
		student = v
	case *Student:
		if v == nil {
			return nil, core.Invalid("student", core.ReasonMissing, "")
		}
		student = *v
	default:
		decoded, err := g.Decode(ctx, input)
		if err != nil {
			return nil, err
		}
		student = decoded
	}
	return g.Generate(ctx, student)
}

// Decode validates a loose student record and converts it to a Student.
func (g *Generator) Decode(ctx context.Context, input any) (Student, error) {
	if err := g.rules.Validate(input); err != nil {
		return Student{}, core.InField("student", err)
	}
	if _, err := inputSchema.Validate(ctx, input); err != nil {
		return Student{}, core.InField("student", err)
	}
	name, _ := core.Lookup(input, "name")
	rawMarks, _ := core.Lookup(input, "marks")
	fields, _ := core.Fields(rawMarks)
	student := Student{Marks: make([]Mark, len(fields))}
	student.Name, _ = core.String(name)
	for i, f := range fields {
		score, _ := core.Number(f.Value)
		student.Marks[i] = Mark{Subject: f.Key, Score: score}
	}
	return student, nil
}

// Generate grades a typed student.
func (g *Generator) Generate(ctx context.Context, student Student) (*ReportCard, error) {
	v := schema.NewCompositeValidator(schema.NewStructValidator(student))
	for i, m := range student.Marks {
		v.AddValidator(schema.NewPredicateValidator(m.Score, inMark(i, g.scoreRange)))
	}
	if err := v.Validate(ctx); err != nil {
		return nil, core.InField("student", err)
	}
	return g.grade(student), nil
}

func inMark(index int, r schema.Range) schema.Predicate {
	check := schema.Between(r)
	return func(value any) error {
		return core.InField(fmt.Sprintf("marks[%d].score", index), check(value))
	}
}

func (g *Generator) grade(student Student) *ReportCard {
	marks := student.Marks
	score := func(m Mark) float64 { return m.Score }
	subject := func(m Mark) string { return m.Subject }

	total := aggregate.SumOf(marks, score)
	highest, _ := aggregate.MaxBy(marks, score)
	lowest, _ := aggregate.MinBy(marks, score)
	passed, failed := aggregate.Partition(marks, func(m Mark) bool { return m.Score >= g.passMark })
	percentage := format.Percent(total, float64(len(marks)*MaxScore))

	return &ReportCard{
		Name:           normalize.Trim(student.Name),
		TotalMarks:     format.Round2(total),
		Percentage:     percentage,
		Grade:          Grade(percentage),
		HighestSubject: highest.Subject,
		LowestSubject:  lowest.Subject,
		PassedSubjects: project(passed, subject),
		FailedSubjects: project(failed, subject),
		SubjectCount:   len(marks),
	}
}

func project[T, R any](items []T, fn func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}

var _ core.Usecase[any, *ReportCard] = (*Generator)(nil)

var (
	inputSchema      = InputSchema()
	defaultGenerator = New()
)

// GenerateReportCard grades a student record, or returns nil when the record
// is malformed or any mark falls outside (0, 100].
func GenerateReportCard(student any) *ReportCard {
	card, err := defaultGenerator.Execute(context.Background(), student)
	if err != nil {
		return nil
	}
	return card
}

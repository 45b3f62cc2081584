package repository

import (
	"fmt"
	"strings"

	"github.com/noah-isme/exam-analytics-api/internal/models"
)

// reportFilter accumulates WHERE conditions over the aliases
// s (students), t (tests), i (institutions) and b (batches).
type reportFilter struct {
	conditions []string
	args       []interface{}
}

// newReportFilter builds conditions for filter. subjectCond is a format string with a single %d
// placeholder index, since subject scoping differs per base table.
func newReportFilter(filter models.ReportFilter, subjectCond string) *reportFilter {
	f := &reportFilter{conditions: []string{"1=1"}}
	f.addString("i.name = $%d", filter.Institution)
	f.addString("b.name = $%d", filter.Batch)
	f.addString("s.class = $%d", filter.StudentClass)
	f.addString("s.section = $%d", filter.Section)
	f.addString("t.test_type = $%d", filter.TestType)
	f.addString("t.code = $%d", filter.TestCode)
	f.addString(subjectCond, filter.Subject)
	if filter.DateFrom != nil {
		f.add("t.test_date >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		f.add("t.test_date <= $%d", *filter.DateTo)
	}
	if filter.Month != nil {
		f.add("t.test_date >= $%d", *filter.Month)
		f.add("t.test_date < $%d", filter.Month.AddDate(0, 1, 0))
	}
	return f
}

func (f *reportFilter) addString(cond, value string) {
	if value == "" {
		return
	}
	f.add(cond, value)
}

func (f *reportFilter) add(cond string, value interface{}) {
	f.args = append(f.args, value)
	f.conditions = append(f.conditions, fmt.Sprintf(cond, len(f.args)))
}

func (f *reportFilter) where() string {
	return strings.Join(f.conditions, " AND ")
}

const (
	performanceFrom = `FROM student_test_performances p
JOIN students s ON s.id = p.student_id
JOIN tests t ON t.code = p.test_code
JOIN institutions i ON i.id = t.institution_id
JOIN batches b ON b.id = t.batch_id`

	subjectPerformanceFrom = `FROM student_subject_performances sp
JOIN students s ON s.id = sp.student_id
JOIN tests t ON t.code = sp.test_code
JOIN institutions i ON i.id = t.institution_id
JOIN batches b ON b.id = t.batch_id`

	responseFrom = `FROM student_responses r
JOIN students s ON s.id = r.student_id
JOIN tests t ON t.code = r.test_code
JOIN institutions i ON i.id = t.institution_id
JOIN batches b ON b.id = t.batch_id`

	testSubjectCond     = "EXISTS (SELECT 1 FROM questions fq WHERE fq.test_code = t.code AND fq.subject_tag = $%d)"
	responseSubjectCond = "EXISTS (SELECT 1 FROM questions fq WHERE fq.test_code = r.test_code AND fq.question_number = r.question_number AND fq.subject_tag = $%d)"
	rowSubjectCond      = "sp.subject_tag = $%d"
	matrixSubjectCond   = "q.subject_tag = $%d"
)

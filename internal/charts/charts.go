package charts

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"kopilka/internal/service"
)

// Generator рисует графики для отчетов.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// ExpensePie строит круговую диаграмму расходов по категориям. Возвращает
// nil без ошибки, если детализации нет.
func (g *Generator) ExpensePie(report service.Report) ([]byte, error) {
	if len(report.Breakdown) == 0 {
		return nil, nil
	}

	values := make([]chart.Value, 0, len(report.Breakdown))
	for _, ct := range report.Breakdown {
		v, _ := ct.Total.Float64()
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s (%s)", ct.Name, ct.Total.StringFixed(2)),
			Value: v,
		})
	}

	pie := chart.PieChart{
		Title:  "Расходы по категориям",
		Width:  512,
		Height: 512,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render pie chart: %w", err)
	}
	return buf.Bytes(), nil
}

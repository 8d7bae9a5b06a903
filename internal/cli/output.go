package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/engine"
	"github.com/shaiso/Dirigent/internal/orchestrator"
)

// Output печатает результаты команд: таблицы в stdout либо JSON при
// --json. Служебные сообщения идут в stderr, чтобы перенаправленный
// вывод оставался машиночитаемым.
//
// Каждая сущность рендерится своим методом: команды не собирают
// строки таблиц сами.
type Output struct {
	json bool
	data io.Writer
	msg  io.Writer
}

// NewOutput создаёт Output. jsonMode=true переключает вывод данных в JSON.
func NewOutput(jsonMode bool) *Output {
	return &Output{json: jsonMode, data: os.Stdout, msg: os.Stderr}
}

// Success печатает сообщение в stderr.
func (o *Output) Success(format string, args ...any) {
	fmt.Fprintf(o.msg, format+"\n", args...)
}

// Error печатает сообщение об ошибке в stderr.
func (o *Output) Error(format string, args ...any) {
	fmt.Fprintf(o.msg, "Error: "+format+"\n", args...)
}

// JSON печатает значение с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.data)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// table рендерит таблицу через tabwriter; render наполняет строки
// через переданный add.
func (o *Output) table(headers []string, render func(add func(cells ...string))) {
	tw := tabwriter.NewWriter(o.data, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	sep := make([]string, len(headers))
	for i, h := range headers {
		sep[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(sep, "\t"))
	render(func(cells ...string) {
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	})
	tw.Flush()
}

// Units печатает определения единиц работы группы.
func (o *Output) Units(units []domain.WorkUnit) {
	if o.json {
		o.JSON(units)
		return
	}
	o.table([]string{"NODE", "REFERENCE", "DEPENDS_ON", "TIMEOUT", "RETRIES", "INTERVAL", "ACTIVE"},
		func(add func(cells ...string)) {
			for i := range units {
				u := &units[i]
				add(u.Name, u.Reference, joinOrDash(u.DependsOn),
					seconds(u.TimeoutSec), strconv.Itoa(u.RetryAttempts),
					seconds(u.RetryIntervalSec), strconv.FormatBool(u.Active))
			}
		})
}

// Snapshot печатает снимок графа: узлы с разрешёнными зависимостями,
// по алфавиту.
func (o *Output) Snapshot(snap *engine.Snapshot) {
	if o.json {
		o.JSON(snap)
		return
	}
	names := make([]string, 0, len(snap.Units))
	for name := range snap.Units {
		names = append(names, name)
	}
	sort.Strings(names)

	o.table([]string{"NODE", "DEPENDS_ON", "REFERENCE", "TIMEOUT", "RETRIES"},
		func(add func(cells ...string)) {
			for _, name := range names {
				u := snap.Units[name]
				add(name, joinOrDash(u.Dependencies), u.Reference,
					seconds(u.TimeoutSec), strconv.Itoa(u.RetryAttempts))
			}
		})
}

// RunResult печатает итог запуска: сводку в stderr, статусы узлов
// таблицей и, при verbose, записи журнала.
func (o *Output) RunResult(result *orchestrator.RunResult, verbose bool) {
	counts := result.Counts()
	o.Success("Run %s (%s): %s: success %d, failed %d, skipped %d",
		result.RunID, result.ProcessGroup, result.Status,
		counts.Success, counts.Failed, counts.Skipped)

	if o.json {
		o.JSON(result)
		return
	}

	names := make([]string, 0, len(result.NodeStatus))
	for name := range result.NodeStatus {
		names = append(names, name)
	}
	sort.Strings(names)

	o.table([]string{"NODE", "STATUS", "ATTEMPTS"},
		func(add func(cells ...string)) {
			for _, name := range names {
				add(name, string(result.NodeStatus[name]),
					strconv.Itoa(result.Attempts(name)))
			}
		})

	if verbose {
		o.Records(result.Records)
	}
}

// Records печатает записи журнала выполнения.
func (o *Output) Records(records []domain.ExecutionRecord) {
	if o.json {
		o.JSON(records)
		return
	}
	o.table([]string{"NODE", "ATTEMPT", "STATUS", "STARTED", "DURATION", "ERROR"},
		func(add func(cells ...string)) {
			for i := range records {
				rec := &records[i]
				add(rec.NodeName, strconv.Itoa(rec.AttemptNumber),
					string(rec.Status), stamp(rec.StartedAt),
					rec.Duration().String(), rec.ErrorMessage)
			}
		})
}

// Runs печатает список запусков.
func (o *Output) Runs(runs []domain.Run) {
	if o.json {
		o.JSON(runs)
		return
	}
	o.table([]string{"RUN_ID", "GROUP", "STATUS", "SOURCE", "STARTED", "FINISHED"},
		func(add func(cells ...string)) {
			for i := range runs {
				run := &runs[i]
				add(run.ID.String(), run.ProcessGroup, string(run.Status),
					run.Source, stamp(run.StartedAt), stamp(run.FinishedAt))
			}
		})
}

// Groups печатает группы с количеством единиц, по алфавиту.
func (o *Output) Groups(groups map[string]int) {
	if o.json {
		o.JSON(groups)
		return
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	o.table([]string{"GROUP", "UNITS"},
		func(add func(cells ...string)) {
			for _, name := range names {
				add(name, strconv.Itoa(groups[name]))
			}
		})
}

// joinOrDash склеивает имена через запятую; пустой список — прочерк.
func joinOrDash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

// seconds форматирует целое число секунд для таблицы.
func seconds(n int) string {
	return strconv.Itoa(n) + "s"
}

// stamp форматирует метку времени; nil — прочерк.
func stamp(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

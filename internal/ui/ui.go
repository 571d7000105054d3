// Package ui описывает декларативную спецификацию интерфейса,
// которую фронтенд рендерит без знания о банковской логике.
package ui

type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type Table struct {
	Type    string   `json:"type"`
	Title   string   `json:"title"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

type Chart struct {
	Type      string           `json:"type"`
	ChartType string           `json:"chartType"`
	Title     string           `json:"title"`
	Data      []map[string]any `json:"data"`
}

type FormField struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Value    any    `json:"value"`
	Required bool   `json:"required"`
}

type Form struct {
	Type    string           `json:"type"`
	FormID  string           `json:"formId"`
	Title   string           `json:"title"`
	Fields  []FormField      `json:"fields"`
	Actions []map[string]any `json:"actions"`
}

type Control struct {
	Type    string `json:"type"`
	Default string `json:"default"`
}

// Spec — готовый к отрисовке ответ: сообщения, компоненты и контролы.
// Компоненты гетерогенны (table/chart/form), поэтому хранятся как any.
type Spec struct {
	Messages   []Message `json:"messages"`
	Components []any     `json:"components"`
	Controls   []Control `json:"controls,omitempty"`
}

// WithMessage создает спецификацию из одного текстового сообщения.
func WithMessage(content string) Spec {
	return Spec{Messages: []Message{NewMessage(content)}, Components: []any{}}
}

// NewMessage создает текстовое сообщение.
func NewMessage(content string) Message {
	return Message{Type: "text", Content: content}
}

// NewTable создает табличный компонент.
func NewTable(title string, columns []string, rows [][]any) Table {
	return Table{Type: "table", Title: title, Columns: columns, Rows: rows}
}

// NewChart создает график указанного вида (bar/pie/line).
func NewChart(chartType, title string, data []map[string]any) Chart {
	return Chart{Type: "chart", ChartType: chartType, Title: title, Data: data}
}

// NewForm создает форму с полями и действиями.
func NewForm(formID, title string, fields []FormField, actions []map[string]any) Form {
	return Form{Type: "form", FormID: formID, Title: title, Fields: fields, Actions: actions}
}

// DateRangePicker создает контрол выбора временного окна.
func DateRangePicker(preset string) Control {
	return Control{Type: "dateRangePicker", Default: preset}
}

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/banking-assistant/backend/internal/models"
	"example.com/banking-assistant/backend/internal/query"
	"example.com/banking-assistant/backend/internal/store"
	"example.com/banking-assistant/backend/internal/ui"
)

const dateLayout = "2006-01-02"

var transactionColumns = []string{"ID", "Date", "Merchant", "Category", "Amount", "Status"}

func (o *Orchestrator) fetchWindow(ctx context.Context, req ChatRequest, spec query.QuerySpec, limit int) ([]models.Transaction, time.Time, time.Time, error) {
	start, end, err := query.Resolve(spec.TimeRange, o.now())
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}

	transactions, err := store.Fetch(ctx, o.source, req.AccountID, start, end, true, limit)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}

	return transactions, start, end, nil
}

// handleTransactionsList отдает таблицу транзакций, новые сверху.
func (o *Orchestrator) handleTransactionsList(ctx context.Context, req ChatRequest, spec query.QuerySpec) (ui.Spec, error) {
	limit := spec.IntParam("limit", 50)
	if limit <= 0 {
		limit = 50
	}

	transactions, start, end, err := o.fetchWindow(ctx, req, spec, limit)
	if err != nil {
		return ui.Spec{}, err
	}

	if len(transactions) == 0 {
		return ui.WithMessage(fmt.Sprintf("No transactions between %s and %s.", start.Format(dateLayout), end.Format(dateLayout))), nil
	}

	table := ui.NewTable(
		fmt.Sprintf("Transactions %s — %s", start.Format(dateLayout), end.Format(dateLayout)),
		transactionColumns,
		transactionRows(transactions),
	)

	message := ui.NewMessage(fmt.Sprintf("Found %d transactions between %s and %s.", len(transactions), start.Format(dateLayout), end.Format(dateLayout)))
	return ui.Spec{Messages: []ui.Message{message}, Components: []any{table}}, nil
}

// handleTopSpending отдает топ категорий трат и разбивку по мерчантам.
func (o *Orchestrator) handleTopSpending(ctx context.Context, req ChatRequest, spec query.QuerySpec) (ui.Spec, error) {
	topK := spec.IntParam("top_k", 5)
	if topK <= 0 {
		topK = 5
	}

	transactions, start, end, err := o.fetchWindow(ctx, req, spec, store.DefaultLimit)
	if err != nil {
		return ui.Spec{}, err
	}

	categories := categoryTotals(transactions)
	if len(categories) == 0 {
		return ui.WithMessage(fmt.Sprintf("No spending found between %s and %s.", start.Format(dateLayout), end.Format(dateLayout))), nil
	}

	if len(categories) > topK {
		categories = categories[:topK]
	}

	var total float64
	chartData := make([]map[string]any, 0, len(categories))
	for _, category := range categories {
		total += category.Total
		chartData = append(chartData, map[string]any{
			"category": category.Category,
			"total":    round2(category.Total),
		})
	}

	merchants := merchantTotals(transactions)
	if len(merchants) > 10 {
		merchants = merchants[:10]
	}
	merchantRows := make([][]any, 0, len(merchants))
	for _, m := range merchants {
		merchantRows = append(merchantRows, []any{m.Category, round2(m.Total)})
	}

	chart := ui.NewChart("bar", "Top spending by category", chartData)
	table := ui.NewTable("Top merchants", []string{"Merchant", "Total"}, merchantRows)
	message := ui.NewMessage(fmt.Sprintf(
		"Your top %d spending categories between %s and %s add up to %.2f.",
		len(categories), start.Format(dateLayout), end.Format(dateLayout), total,
	))

	return ui.Spec{Messages: []ui.Message{message}, Components: []any{chart, table}}, nil
}

// handleMerchantTotal считает траты по одному мерчанту.
func (o *Orchestrator) handleMerchantTotal(ctx context.Context, req ChatRequest, spec query.QuerySpec) (ui.Spec, error) {
	merchant := spec.StringParam("merchant")
	if merchant == "" {
		return ui.WithMessage("Which merchant are you asking about?"), nil
	}

	transactions, start, end, err := o.fetchWindow(ctx, req, spec, store.DefaultLimit)
	if err != nil {
		return ui.Spec{}, err
	}

	needle := strings.ToLower(merchant)
	matched := make([]models.Transaction, 0)
	var total float64
	for _, tx := range transactions {
		if tx.Direction != models.DirectionDebit {
			continue
		}
		if !strings.Contains(strings.ToLower(tx.Merchant.Name), needle) {
			continue
		}
		matched = append(matched, tx)
		total += tx.Amount
	}

	if len(matched) == 0 {
		return ui.WithMessage(fmt.Sprintf("No payments to %q between %s and %s.", merchant, start.Format(dateLayout), end.Format(dateLayout))), nil
	}

	table := ui.NewTable(
		fmt.Sprintf("Payments to %s", matched[0].Merchant.Name),
		transactionColumns,
		transactionRows(matched),
	)
	message := ui.NewMessage(fmt.Sprintf(
		"You spent %.2f at %s across %d payments between %s and %s.",
		total, matched[0].Merchant.Name, len(matched), start.Format(dateLayout), end.Format(dateLayout),
	))

	return ui.Spec{Messages: []ui.Message{message}, Components: []any{table}}, nil
}

// handleRecurringPayments группирует траты в регулярные серии по мерчанту и ритму.
func (o *Orchestrator) handleRecurringPayments(ctx context.Context, req ChatRequest, spec query.QuerySpec) (ui.Spec, error) {
	minOccurrences := spec.IntParam("min_occurrences", 3)
	if minOccurrences <= 0 {
		minOccurrences = 3
	}

	transactions, start, end, err := o.fetchWindow(ctx, req, spec, store.DefaultLimit)
	if err != nil {
		return ui.Spec{}, err
	}

	recurring := detectRecurring(transactions, minOccurrences)
	if len(recurring) == 0 {
		return ui.WithMessage(fmt.Sprintf("No recurring payments found between %s and %s.", start.Format(dateLayout), end.Format(dateLayout))), nil
	}

	rows := make([][]any, 0, len(recurring))
	for _, payment := range recurring {
		rows = append(rows, []any{
			payment.Merchant,
			string(payment.Cadence),
			round2(payment.AverageAmount),
			payment.Occurrences,
			payment.LastSeenAt.Format(dateLayout),
		})
	}

	table := ui.NewTable(
		"Recurring payments",
		[]string{"Merchant", "Cadence", "Average", "Occurrences", "Last seen"},
		rows,
	)
	message := ui.NewMessage(fmt.Sprintf("Found %d recurring payments between %s and %s.", len(recurring), start.Format(dateLayout), end.Format(dateLayout)))

	return ui.Spec{Messages: []ui.Message{message}, Components: []any{table}}, nil
}

// handleUnrecognizedTransaction объясняет списание и готовит форму диспута.
func (o *Orchestrator) handleUnrecognizedTransaction(ctx context.Context, req ChatRequest, spec query.QuerySpec) (ui.Spec, error) {
	txID := spec.StringParam("transaction_id")
	if txID == "" {
		txID = strings.TrimSpace(req.SelectedTransactionID)
	}

	if txID == "" {
		return ui.WithMessage("Which transaction do you mean? Please select a transaction row (or provide its transaction id)."), nil
	}

	tx, findErr := store.Find(ctx, o.source, req.AccountID, txID)

	// Баланс тянется независимо: неудача поиска транзакции его не отменяет.
	balance, balanceErr := o.source.Balance(ctx, req.AccountID)

	if findErr != nil {
		if errors.Is(findErr, store.ErrNotFound) {
			return ui.WithMessage(fmt.Sprintf("I couldn't find transaction %s on this account. Please check the id and try again.", txID)), nil
		}
		return ui.Spec{}, findErr
	}

	messages := []ui.Message{
		ui.NewMessage(explainTransaction(tx)),
	}
	if balanceErr == nil {
		messages = append(messages, ui.NewMessage(fmt.Sprintf(
			"Your current balance is %.2f (%.2f available).", balance.Current, balance.Available,
		)))
	}

	form := disputeForm(tx)
	return ui.Spec{Messages: messages, Components: []any{form}}, nil
}

// handleForecastBalance проецирует баланс вперед по чистому потоку за окно.
func (o *Orchestrator) handleForecastBalance(ctx context.Context, req ChatRequest, spec query.QuerySpec) (ui.Spec, error) {
	transactions, start, end, err := o.fetchWindow(ctx, req, spec, store.DefaultLimit)
	if err != nil {
		return ui.Spec{}, err
	}

	balance, err := o.source.Balance(ctx, req.AccountID)
	if err != nil {
		return ui.Spec{}, err
	}

	var net float64
	for _, tx := range transactions {
		if tx.Direction == models.DirectionCredit {
			net += tx.Amount
		} else {
			net -= tx.Amount
		}
	}

	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	dailyRate := net / float64(days)

	const horizonDays = 30
	points := make([]map[string]any, 0, 5)
	for offset := 0; offset <= horizonDays; offset += 7 {
		points = append(points, map[string]any{
			"date":    o.now().AddDate(0, 0, offset).Format(dateLayout),
			"balance": round2(balance.Current + dailyRate*float64(offset)),
		})
	}

	projected := balance.Current + dailyRate*horizonDays
	trend := "grow"
	if dailyRate < 0 {
		trend = "shrink"
	}

	chart := ui.NewChart("line", "Projected balance", points)
	message := ui.NewMessage(fmt.Sprintf(
		"Based on your net flow of %.2f/day since %s, your balance of %.2f should %s to about %.2f in %d days.",
		dailyRate, start.Format(dateLayout), balance.Current, trend, projected, horizonDays,
	))

	return ui.Spec{Messages: []ui.Message{message}, Components: []any{chart}}, nil
}

// handleCompareMonthsWhy объясняет разницу трат текущего и прошлого месяца.
func (o *Orchestrator) handleCompareMonthsWhy(ctx context.Context, req ChatRequest, spec query.QuerySpec) (ui.Spec, error) {
	today := o.now()
	thisStart, thisEnd := query.MonthBounds(today)
	lastStart, lastEnd := query.MonthBounds(thisStart.AddDate(0, 0, -1))

	// Два независимых чтения, собираем оба до построения интерфейса.
	var wg sync.WaitGroup
	var thisTxs, lastTxs []models.Transaction
	var thisErr, lastErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		thisTxs, thisErr = store.Fetch(ctx, o.source, req.AccountID, thisStart, thisEnd, true, store.DefaultLimit)
	}()
	go func() {
		defer wg.Done()
		lastTxs, lastErr = store.Fetch(ctx, o.source, req.AccountID, lastStart, lastEnd, true, store.DefaultLimit)
	}()
	wg.Wait()

	if thisErr != nil {
		return ui.Spec{}, thisErr
	}
	if lastErr != nil {
		return ui.Spec{}, lastErr
	}

	thisTotals := categoryTotalMap(thisTxs)
	lastTotals := categoryTotalMap(lastTxs)

	type mover struct {
		category string
		this     float64
		last     float64
		delta    float64
	}

	seen := make(map[string]bool)
	movers := make([]mover, 0, len(thisTotals)+len(lastTotals))
	for category, total := range thisTotals {
		seen[category] = true
		movers = append(movers, mover{category: category, this: total, last: lastTotals[category], delta: total - lastTotals[category]})
	}
	for category, total := range lastTotals {
		if !seen[category] {
			movers = append(movers, mover{category: category, last: total, delta: -total})
		}
	}

	sort.Slice(movers, func(i, j int) bool {
		return abs(movers[i].delta) > abs(movers[j].delta)
	})
	if len(movers) > 5 {
		movers = movers[:5]
	}

	var thisTotal, lastTotal float64
	for _, total := range thisTotals {
		thisTotal += total
	}
	for _, total := range lastTotals {
		lastTotal += total
	}

	if thisTotal == 0 && lastTotal == 0 {
		return ui.WithMessage("There is no spending in either month to compare."), nil
	}

	rows := make([][]any, 0, len(movers))
	chartData := make([]map[string]any, 0, len(movers))
	for _, m := range movers {
		rows = append(rows, []any{m.category, round2(m.this), round2(m.last), round2(m.delta)})
		chartData = append(chartData, map[string]any{
			"category":  m.category,
			"thisMonth": round2(m.this),
			"lastMonth": round2(m.last),
		})
	}

	summary := fmt.Sprintf(
		"You spent %.2f so far this month vs %.2f last month.",
		thisTotal, lastTotal,
	)
	if len(movers) > 0 && movers[0].delta != 0 {
		direction := "more"
		if movers[0].delta < 0 {
			direction = "less"
		}
		summary += fmt.Sprintf(" The biggest change is %s: %.2f %s than last month.", movers[0].category, abs(movers[0].delta), direction)
	}

	table := ui.NewTable("Category changes", []string{"Category", "This month", "Last month", "Delta"}, rows)
	chart := ui.NewChart("bar", "This month vs last month", chartData)

	return ui.Spec{Messages: []ui.Message{ui.NewMessage(summary)}, Components: []any{table, chart}}, nil
}

func transactionRows(transactions []models.Transaction) [][]any {
	rows := make([][]any, 0, len(transactions))
	for _, tx := range transactions {
		amount := tx.Amount
		if tx.Direction == models.DirectionDebit {
			amount = -amount
		}

		status := "posted"
		if tx.IsPending {
			status = "pending"
		}

		rows = append(rows, []any{
			tx.ID,
			tx.PostedAt.Format(dateLayout),
			tx.Merchant.Name,
			tx.Merchant.Category,
			round2(amount),
			status,
		})
	}

	return rows
}

// categoryTotals суммирует списания по категориям, по убыванию сумм.
func categoryTotals(transactions []models.Transaction) []models.CategoryTotal {
	totals := categoryTotalMap(transactions)

	result := make([]models.CategoryTotal, 0, len(totals))
	for category, total := range totals {
		result = append(result, models.CategoryTotal{Category: category, Total: total})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Total != result[j].Total {
			return result[i].Total > result[j].Total
		}
		return result[i].Category < result[j].Category
	})

	return result
}

func categoryTotalMap(transactions []models.Transaction) map[string]float64 {
	totals := make(map[string]float64)
	for _, tx := range transactions {
		if tx.Direction != models.DirectionDebit {
			continue
		}
		totals[tx.Merchant.Category] += tx.Amount
	}

	return totals
}

// merchantTotals суммирует списания по мерчантам, по убыванию сумм.
// Переиспользует CategoryTotal как пару имя/сумма.
func merchantTotals(transactions []models.Transaction) []models.CategoryTotal {
	totals := make(map[string]float64)
	for _, tx := range transactions {
		if tx.Direction != models.DirectionDebit {
			continue
		}
		totals[tx.Merchant.Name] += tx.Amount
	}

	result := make([]models.CategoryTotal, 0, len(totals))
	for merchant, total := range totals {
		result = append(result, models.CategoryTotal{Category: merchant, Total: total})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Total != result[j].Total {
			return result[i].Total > result[j].Total
		}
		return result[i].Category < result[j].Category
	})

	return result
}

// detectRecurring собирает серии списаний по мерчанту и оценивает ритм
// по медианному интервалу между платежами.
func detectRecurring(transactions []models.Transaction, minOccurrences int) []models.RecurringPayment {
	byMerchant := make(map[string][]models.Transaction)
	for _, tx := range transactions {
		if tx.Direction != models.DirectionDebit {
			continue
		}
		byMerchant[tx.Merchant.Name] = append(byMerchant[tx.Merchant.Name], tx)
	}

	result := make([]models.RecurringPayment, 0, len(byMerchant))
	for merchant, series := range byMerchant {
		if len(series) < minOccurrences {
			continue
		}

		sort.Slice(series, func(i, j int) bool {
			return series[i].PostedAt.Before(series[j].PostedAt)
		})

		var total float64
		for _, tx := range series {
			total += tx.Amount
		}

		gaps := make([]float64, 0, len(series)-1)
		for i := 1; i < len(series); i++ {
			gaps = append(gaps, series[i].PostedAt.Sub(series[i-1].PostedAt).Hours()/24)
		}

		result = append(result, models.RecurringPayment{
			Merchant:      merchant,
			Cadence:       cadenceFromGap(median(gaps)),
			AverageAmount: total / float64(len(series)),
			Occurrences:   len(series),
			LastSeenAt:    series[len(series)-1].PostedAt,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].AverageAmount != result[j].AverageAmount {
			return result[i].AverageAmount > result[j].AverageAmount
		}
		return result[i].Merchant < result[j].Merchant
	})

	return result
}

func cadenceFromGap(gapDays float64) models.Cadence {
	switch {
	case gapDays >= 5 && gapDays <= 9:
		return models.CadenceWeekly
	case gapDays >= 12 && gapDays <= 17:
		return models.CadenceBiweekly
	case gapDays >= 26 && gapDays <= 35:
		return models.CadenceMonthly
	case gapDays >= 80 && gapDays <= 100:
		return models.CadenceQuarterly
	case gapDays >= 330 && gapDays <= 400:
		return models.CadenceYearly
	default:
		return models.CadenceUnknown
	}
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func explainTransaction(tx models.Transaction) string {
	if tx.IsPending {
		return fmt.Sprintf(
			"Transaction %s is a pending hold of %.2f from %s on %s. Pending holds reserve funds but can still change or drop off before posting. If you still don't recognize it once it posts, you can start a dispute below.",
			tx.ID, tx.Amount, tx.Merchant.Name, tx.PostedAt.Format(dateLayout),
		)
	}

	return fmt.Sprintf(
		"Transaction %s posted on %s: %.2f at %s (%s). Posted transactions are final. If you don't recognize it, you can start a dispute below.",
		tx.ID, tx.PostedAt.Format(dateLayout), tx.Amount, tx.Merchant.Name, tx.Merchant.Category,
	)
}

func disputeForm(tx models.Transaction) ui.Form {
	fields := []ui.FormField{
		{Name: "transactionId", Label: "Transaction", Value: tx.ID, Required: true},
		{Name: "merchant", Label: "Merchant", Value: tx.Merchant.Name, Required: true},
		{Name: "amount", Label: "Amount", Value: round2(tx.Amount), Required: true},
		{Name: "postedAt", Label: "Date", Value: tx.PostedAt.Format(dateLayout), Required: true},
		{Name: "reason", Label: "Why do you dispute this charge?", Value: nil, Required: true},
	}

	actions := []map[string]any{
		{"type": "submit", "label": "Start dispute"},
		{"type": "cancel", "label": "Cancel"},
	}

	return ui.NewForm(uuid.NewString(), "Dispute this transaction", fields, actions)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func abs(value float64) float64 {
	return math.Abs(value)
}

// Package bot is the Telegram front-end for field staff: consult budgets,
// register departments, projects and expenses from a phone.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"obras/internal/budget"
	"obras/internal/core"
	"obras/internal/storage"
)

// Store is the slice of the repository the bot needs.
type Store interface {
	budget.Ledger
	ListDepartments(ctx context.Context) ([]core.Department, error)
	GetDepartment(ctx context.Context, id int64) (core.Department, error)
	CreateDepartment(ctx context.Context, dep core.Department) (core.Department, error)
	ListProjects(ctx context.Context, f storage.ProjectFilter) ([]core.Project, error)
	GetProject(ctx context.Context, id int64) (core.Project, error)
	GetProgress(ctx context.Context, projectID int64) (core.Progress, error)
	CreateProject(ctx context.Context, p core.Project) (core.Project, error)
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
}

var _ Store = (*storage.Repository)(nil)

const chartCallbackPrefix = "grafico_"

type Bot struct {
	api      *tgbotapi.BotAPI
	store    Store
	sessions *Sessions
}

func New(api *tgbotapi.BotAPI, store Store) *Bot {
	return &Bot{
		api:      api,
		store:    store,
		sessions: NewSessions(),
	}
}

// Run polls Telegram for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	slog.InfoContext(ctx, "Bot polling started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		if update.Message.IsCommand() {
			b.handleCommand(ctx, update.Message)
		} else {
			b.handleText(ctx, update.Message)
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		b.sessions.Reset(chatID)
		b.send(ctx, chatID, "Olá! Eu acompanho o orçamento das obras.\n\n"+
			"/secretarias lista as secretarias e seus saldos\n"+
			"/obras lista as obras cadastradas\n"+
			"/grafico mostra o gráfico de orçamento de uma secretaria\n"+
			"/add_secretaria cadastra uma secretaria\n"+
			"/add_obra cadastra uma obra\n"+
			"/add_gasto registra um gasto\n"+
			"/cancelar interrompe a operação atual")
	case "cancelar":
		b.sessions.Reset(chatID)
		b.send(ctx, chatID, "Operação cancelada.")
	case "secretarias":
		b.sessions.Reset(chatID)
		b.listDepartments(ctx, chatID)
	case "obras":
		b.sessions.Reset(chatID)
		b.listProjects(ctx, chatID)
	case "grafico":
		b.sessions.Reset(chatID)
		b.offerChart(ctx, chatID)
	case "add_secretaria":
		b.sessions.Begin(chatID, StateAddDepartmentName)
		b.send(ctx, chatID, "Qual o nome da nova secretaria?")
	case "add_obra":
		b.sessions.Begin(chatID, StateAddProjectDepartment)
		b.promptDepartmentID(ctx, chatID, "A qual secretaria a obra pertence? Envie o número.")
	case "add_gasto":
		b.sessions.Begin(chatID, StateAddExpenseProject)
		b.promptProjectID(ctx, chatID)
	default:
		b.send(ctx, chatID, "Não conheço esse comando. Use /start para ver as opções.")
	}
}

// handleText advances whatever conversation the chat is in. Outside a
// conversation, plain text gets redirected to /start.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	sess := b.sessions.Get(chatID)

	switch sess.State {
	case StateIdle:
		b.send(ctx, chatID, "Use /start para ver os comandos disponíveis.")

	case StateAddDepartmentName:
		b.finishAddDepartment(ctx, chatID, text)

	case StateAddProjectDepartment:
		id, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			b.send(ctx, chatID, "Envie apenas o número da secretaria, ou /cancelar.")
			return
		}
		if _, err := b.store.GetDepartment(ctx, id); err != nil {
			b.send(ctx, chatID, "Secretaria não encontrada. Envie outro número, ou /cancelar.")
			return
		}
		b.sessions.Advance(chatID, "department_id", text, StateAddProjectName)
		b.send(ctx, chatID, "Qual o nome da obra?")

	case StateAddProjectName:
		b.finishAddProject(ctx, chatID, sess, text)

	case StateAddExpenseProject:
		id, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			b.send(ctx, chatID, "Envie apenas o número da obra, ou /cancelar.")
			return
		}
		if _, err := b.store.GetProject(ctx, id); err != nil {
			b.send(ctx, chatID, "Obra não encontrada. Envie outro número, ou /cancelar.")
			return
		}
		b.sessions.Advance(chatID, "project_id", text, StateAddExpenseDescription)
		b.send(ctx, chatID, "Qual a descrição do gasto?")

	case StateAddExpenseDescription:
		if len(strings.TrimSpace(text)) < 3 {
			b.send(ctx, chatID, "Descrição muito curta. Tente novamente, ou /cancelar.")
			return
		}
		b.sessions.Advance(chatID, "description", text, StateAddExpenseAmount)
		b.send(ctx, chatID, "Qual o valor? (ex: 1234,56)")

	case StateAddExpenseAmount:
		b.finishAddExpense(ctx, chatID, sess, text)
	}
}

func (b *Bot) finishAddDepartment(ctx context.Context, chatID int64, name string) {
	dep := core.Department{Name: name}
	if err := dep.Validate(); err != nil {
		b.send(ctx, chatID, "Nome inválido (entre 3 e 100 caracteres). Tente novamente, ou /cancelar.")
		return
	}
	created, err := b.store.CreateDepartment(ctx, dep)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateName) {
			b.send(ctx, chatID, "Já existe uma secretaria com esse nome. Envie outro, ou /cancelar.")
			return
		}
		b.fail(ctx, chatID, "create department", err)
		return
	}
	b.sessions.Reset(chatID)
	b.send(ctx, chatID, fmt.Sprintf("Secretaria *%s* cadastrada (nº %d).", created.Name, created.ID))
}

func (b *Bot) finishAddProject(ctx context.Context, chatID int64, sess *Session, name string) {
	departmentID, _ := strconv.ParseInt(sess.Data["department_id"], 10, 64)
	p := core.Project{Name: name, DepartmentID: departmentID}
	if err := p.Validate(); err != nil {
		b.send(ctx, chatID, "Nome inválido (entre 5 e 200 caracteres). Tente novamente, ou /cancelar.")
		return
	}
	created, err := b.store.CreateProject(ctx, p)
	if err != nil {
		b.fail(ctx, chatID, "create project", err)
		return
	}
	b.sessions.Reset(chatID)
	b.send(ctx, chatID, fmt.Sprintf("Obra *%s* cadastrada (nº %d).", created.Name, created.ID))
}

// finishAddExpense is the strict counterpart of the API endpoint: an expense
// that would leave the department's balance negative is rejected outright.
func (b *Bot) finishAddExpense(ctx context.Context, chatID int64, sess *Session, text string) {
	amount, err := core.ParseBRL(text)
	if err != nil || amount.Cents <= 0 {
		b.send(ctx, chatID, "Valor inválido. Envie algo como 1234,56, ou /cancelar.")
		return
	}
	projectID, _ := strconv.ParseInt(sess.Data["project_id"], 10, 64)
	p, err := b.store.GetProject(ctx, projectID)
	if err != nil {
		b.fail(ctx, chatID, "load project", err)
		return
	}

	remaining, err := budget.RemainingBudget(ctx, b.store, p.DepartmentID)
	if err != nil {
		b.fail(ctx, chatID, "compute remaining budget", err)
		return
	}
	if amount.Cents > remaining.Cents {
		b.sessions.Reset(chatID)
		b.send(ctx, chatID, fmt.Sprintf(
			"Gasto não registrado: o valor %s ultrapassa o saldo disponível da secretaria (%s).",
			core.FormatBRL(amount), core.FormatBRL(remaining)))
		return
	}

	e := core.Expense{
		Description: sess.Data["description"],
		Amount:      amount,
		Date:        core.Today(),
		ProjectID:   projectID,
	}
	if err := e.Validate(); err != nil {
		b.send(ctx, chatID, "Gasto inválido. Recomece com /add_gasto.")
		b.sessions.Reset(chatID)
		return
	}
	created, err := b.store.CreateExpense(ctx, e)
	if err != nil {
		b.fail(ctx, chatID, "create expense", err)
		return
	}
	b.sessions.Reset(chatID)
	b.send(ctx, chatID, fmt.Sprintf("Gasto de %s registrado na obra *%s*.",
		core.FormatBRL(created.Amount), p.Name))
}

func (b *Bot) listDepartments(ctx context.Context, chatID int64) {
	deps, err := b.store.ListDepartments(ctx)
	if err != nil {
		b.fail(ctx, chatID, "list departments", err)
		return
	}
	if len(deps) == 0 {
		b.send(ctx, chatID, "Nenhuma secretaria cadastrada ainda. Use /add_secretaria.")
		return
	}
	var sb strings.Builder
	sb.WriteString("*Secretarias*\n")
	for _, dep := range deps {
		consolidated, err := budget.ConsolidatedBudget(ctx, b.store, dep.ID)
		if err != nil {
			b.fail(ctx, chatID, "compute consolidated budget", err)
			return
		}
		spent, err := b.store.DepartmentTotalSpent(ctx, dep.ID)
		if err != nil {
			b.fail(ctx, chatID, "compute department total", err)
			return
		}
		remaining := core.Money{Cents: consolidated.Cents - spent.Cents}
		fmt.Fprintf(&sb, "%d. %s\n   orçamento %s | gasto %s | saldo %s\n",
			dep.ID, dep.Name,
			core.FormatBRL(consolidated), core.FormatBRL(spent), core.FormatBRL(remaining))
	}
	b.send(ctx, chatID, sb.String())
}

func (b *Bot) listProjects(ctx context.Context, chatID int64) {
	projects, err := b.store.ListProjects(ctx, storage.ProjectFilter{Order: storage.OrderByName})
	if err != nil {
		b.fail(ctx, chatID, "list projects", err)
		return
	}
	if len(projects) == 0 {
		b.send(ctx, chatID, "Nenhuma obra cadastrada ainda. Use /add_obra.")
		return
	}
	var sb strings.Builder
	sb.WriteString("*Obras*\n")
	for _, p := range projects {
		spent, err := b.store.ProjectTotalSpent(ctx, p.ID)
		if err != nil {
			b.fail(ctx, chatID, "compute project total", err)
			return
		}
		prog, err := b.store.GetProgress(ctx, p.ID)
		if err != nil {
			b.fail(ctx, chatID, "load progress", err)
			return
		}
		fmt.Fprintf(&sb, "%d. %s — %s — gasto %s\n", p.ID, p.Name, prog.Status, core.FormatBRL(spent))
	}
	b.send(ctx, chatID, sb.String())
}

// offerChart shows one button per department; the chart renders on callback.
func (b *Bot) offerChart(ctx context.Context, chatID int64) {
	deps, err := b.store.ListDepartments(ctx)
	if err != nil {
		b.fail(ctx, chatID, "list departments", err)
		return
	}
	if len(deps) == 0 {
		b.send(ctx, chatID, "Nenhuma secretaria cadastrada ainda. Use /add_secretaria.")
		return
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(deps))
	for _, dep := range deps {
		data := chartCallbackPrefix + strconv.FormatInt(dep.ID, 10)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(dep.Name, data)))
	}
	msg := tgbotapi.NewMessage(chatID, "De qual secretaria você quer o gráfico?")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		slog.ErrorContext(ctx, "Failed to send chart menu", "error", err, "chat_id", chatID)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		slog.WarnContext(ctx, "Failed to answer callback query", "error", err)
	}
	if cb.Message == nil || !strings.HasPrefix(cb.Data, chartCallbackPrefix) {
		return
	}
	chatID := cb.Message.Chat.ID
	id, err := strconv.ParseInt(strings.TrimPrefix(cb.Data, chartCallbackPrefix), 10, 64)
	if err != nil {
		return
	}
	b.sendChart(ctx, chatID, id)
}

func (b *Bot) sendChart(ctx context.Context, chatID, departmentID int64) {
	dep, err := b.store.GetDepartment(ctx, departmentID)
	if err != nil {
		b.send(ctx, chatID, "Secretaria não encontrada.")
		return
	}
	consolidated, err := budget.ConsolidatedBudget(ctx, b.store, dep.ID)
	if err != nil {
		b.fail(ctx, chatID, "compute consolidated budget", err)
		return
	}
	spent, err := b.store.DepartmentTotalSpent(ctx, dep.ID)
	if err != nil {
		b.fail(ctx, chatID, "compute department total", err)
		return
	}
	png, err := BudgetPie(dep.Name, spent, consolidated)
	if err != nil {
		b.fail(ctx, chatID, "render chart", err)
		return
	}
	if png == nil {
		b.send(ctx, chatID, fmt.Sprintf("A secretaria *%s* ainda não tem orçamento consolidado.", dep.Name))
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "orcamento.png", Bytes: png})
	photo.Caption = fmt.Sprintf("Orçamento da secretaria %s", dep.Name)
	if _, err := b.api.Send(photo); err != nil {
		slog.ErrorContext(ctx, "Failed to send chart", "error", err, "chat_id", chatID)
	}
}

func (b *Bot) promptDepartmentID(ctx context.Context, chatID int64, question string) {
	deps, err := b.store.ListDepartments(ctx)
	if err != nil {
		b.fail(ctx, chatID, "list departments", err)
		return
	}
	if len(deps) == 0 {
		b.sessions.Reset(chatID)
		b.send(ctx, chatID, "Cadastre uma secretaria primeiro com /add_secretaria.")
		return
	}
	var sb strings.Builder
	sb.WriteString(question + "\n")
	for _, dep := range deps {
		fmt.Fprintf(&sb, "%d. %s\n", dep.ID, dep.Name)
	}
	b.send(ctx, chatID, sb.String())
}

func (b *Bot) promptProjectID(ctx context.Context, chatID int64) {
	projects, err := b.store.ListProjects(ctx, storage.ProjectFilter{Order: storage.OrderByName})
	if err != nil {
		b.fail(ctx, chatID, "list projects", err)
		return
	}
	if len(projects) == 0 {
		b.sessions.Reset(chatID)
		b.send(ctx, chatID, "Cadastre uma obra primeiro com /add_obra.")
		return
	}
	var sb strings.Builder
	sb.WriteString("Em qual obra foi o gasto? Envie o número.\n")
	for _, p := range projects {
		fmt.Fprintf(&sb, "%d. %s\n", p.ID, p.Name)
	}
	b.send(ctx, chatID, sb.String())
}

func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		slog.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID)
	}
}

// fail logs the error and tells the user something went wrong, without
// leaking internals into the chat.
func (b *Bot) fail(ctx context.Context, chatID int64, op string, err error) {
	slog.ErrorContext(ctx, "Bot operation failed", "op", op, "error", err, "chat_id", chatID)
	b.send(ctx, chatID, "Algo deu errado. Tente novamente mais tarde.")
}

package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"balanced-meal-planner/internal/app"
	"balanced-meal-planner/internal/config"
	"balanced-meal-planner/internal/metrics"
	"balanced-meal-planner/internal/planner"
	"balanced-meal-planner/internal/shopping"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// WebhookPath is where the HTTP server mounts the Telegram webhook.
const WebhookPath = "/telegram/webhook"

const activateAction = "activate"

// Sender is the part of the Telegram API the bot talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// MenuService is the part of the application the bot drives.
type MenuService interface {
	GenerateMenuPlan(ctx context.Context, req planner.Request) (*planner.MenuPlan, *shopping.ShoppingList, error)
	CurrentMenu(ctx context.Context, userID string) (*planner.MenuPlan, error)
	MenuOn(ctx context.Context, userID string, day time.Time) ([]planner.MenuPlan, error)
	ActivatePlan(ctx context.Context, userID string, id int64) (*planner.MenuPlan, error)
	ShoppingList(ctx context.Context, userID string, planID int64) (*shopping.ShoppingList, error)
	DailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
}

// Bot answers Telegram commands with generated menus.
type Bot struct {
	api      Sender
	menus    MenuService
	cfg      *config.Config
	log      *zap.Logger
	dataPath string
	now      func() time.Time
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, menus MenuService, log *zap.Logger, dataPath string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Info("Authorized on Telegram", zap.String("account", api.Self.UserName))

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook for %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Info("Webhook set", zap.String("response", resp.Description))

	return newBot(api, menus, cfg, log, dataPath), nil
}

func newBot(api Sender, menus MenuService, cfg *config.Config, log *zap.Logger, dataPath string) *Bot {
	return &Bot{
		api:      api,
		menus:    menus,
		cfg:      cfg,
		log:      log,
		dataPath: dataPath,
		now:      time.Now,
	}
}

// WebhookHandler decodes Telegram updates and processes them in the background.
func (b *Bot) WebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var update tgbotapi.Update
		if err := json.NewDecoder(c.Request.Body).Decode(&update); err != nil {
			b.log.Warn("Error parsing update", zap.Error(err))
			c.Status(http.StatusBadRequest)
			return
		}
		go b.handleUpdate(context.Background(), update)
		c.Status(http.StatusOK)
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !b.cfg.TelegramAllowed(msg.From.ID) {
		b.log.Warn("Unauthorized access attempt",
			zap.Int64("telegram_id", msg.From.ID),
			zap.String("username", msg.From.UserName))
		return
	}
	b.processMessage(ctx, msg)
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := strconv.FormatInt(msg.From.ID, 10)
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "menu":
		b.handleMenuCommand(ctx, msg.Chat.ID, userID, args)
	case "current":
		b.handleCurrentCommand(ctx, msg.Chat.ID, userID)
	case "day":
		b.handleDayCommand(ctx, msg.Chat.ID, userID, args)
	case "shopping":
		b.handleShoppingCommand(ctx, msg.Chat.ID, userID)
	case "metrics":
		if msg.From.ID != b.cfg.AdminTelegramID {
			b.send(tgbotapi.NewMessage(msg.Chat.ID, "⛔ *Access Denied*: Admin only."))
			return
		}
		b.handleMetricsCommand(ctx, msg.Chat.ID)
	default:
		b.send(markdown(msg.Chat.ID, helpText))
	}
}

const helpText = `🍽 *Balanced Meal Planner*

/menu [date] - generate a menu for the week of date (next week by default)
/current - show the active menu
/day [date] - show what is planned for a day (today by default)
/shopping - shopping list of the active menu`

func (b *Bot) handleMenuCommand(ctx context.Context, chatID int64, userID, args string) {
	start := nextMonday(b.now())
	if args != "" {
		d, err := app.ParseMenuDate(args)
		if err != nil {
			b.send(tgbotapi.NewMessage(chatID, "❌ Dates look like 10.03.2025 or 2025-03-10."))
			return
		}
		start = d
	}

	sent, err := b.api.Send(markdown(chatID, "🧑‍🍳 *Planning...*"))
	if err != nil {
		b.log.Error("Failed to send initial reply", zap.Error(err))
		return
	}

	b.log.Info("Generating menu plan", zap.String("user_id", userID), zap.Time("start_date", start))
	plan, list, err := b.menus.GenerateMenuPlan(ctx, planner.Request{UserID: userID, StartDate: start})
	if err != nil {
		b.log.Warn("Menu generation failed", zap.String("user_id", userID), zap.Error(err))
		edit := tgbotapi.NewEditMessageText(chatID, sent.MessageID, formatError(err))
		edit.ParseMode = tgbotapi.ModeMarkdown
		b.send(edit)
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Activate", activateData(plan.ID)),
		),
	)
	edit := tgbotapi.NewEditMessageText(chatID, sent.MessageID, formatMenu(app.Simplify(plan, b.cfg.MenuLocale)))
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.ReplyMarkup = &keyboard
	b.send(edit)

	b.send(markdown(chatID, formatShoppingList(list)))
}

func (b *Bot) handleCurrentCommand(ctx context.Context, chatID int64, userID string) {
	plan, err := b.menus.CurrentMenu(ctx, userID)
	if err != nil {
		b.send(markdown(chatID, formatError(err)))
		return
	}
	b.send(markdown(chatID, formatMenu(app.Simplify(plan, b.cfg.MenuLocale))))
}

func (b *Bot) handleDayCommand(ctx context.Context, chatID int64, userID, args string) {
	day := b.now().UTC()
	if args != "" {
		d, err := app.ParseMenuDate(args)
		if err != nil {
			b.send(tgbotapi.NewMessage(chatID, "❌ Dates look like 10.03.2025 or 2025-03-10."))
			return
		}
		day = d
	}
	plans, err := b.menus.MenuOn(ctx, userID, day)
	if err != nil {
		b.send(markdown(chatID, formatError(err)))
		return
	}
	b.send(markdown(chatID, formatDay(plans, day, b.cfg.MenuLocale)))
}

func (b *Bot) handleShoppingCommand(ctx context.Context, chatID int64, userID string) {
	plan, err := b.menus.CurrentMenu(ctx, userID)
	if err != nil {
		b.send(markdown(chatID, formatError(err)))
		return
	}
	list, err := b.menus.ShoppingList(ctx, userID, plan.ID)
	if err != nil {
		b.send(markdown(chatID, formatError(err)))
		return
	}
	b.send(markdown(chatID, formatShoppingList(list)))
}

func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.From == nil || !b.cfg.TelegramAllowed(query.From.ID) {
		return
	}
	// Answer callback to remove spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.log.Warn("Failed to answer callback", zap.Error(err))
	}

	id, ok := parseActivateData(query.Data)
	if !ok || query.Message == nil {
		return
	}
	userID := strconv.FormatInt(query.From.ID, 10)
	chatID := query.Message.Chat.ID

	plan, err := b.menus.ActivatePlan(ctx, userID, id)
	if err != nil {
		b.send(markdown(chatID, formatError(err)))
		return
	}

	// Drop the button so the plan cannot be activated twice from the same message.
	b.send(tgbotapi.NewEditMessageReplyMarkup(chatID, query.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}))
	b.send(markdown(chatID, fmt.Sprintf("✅ *Menu activated* (%s - %s)",
		plan.StartDate.Format(app.MenuDateLayout), plan.EndDate.Format(app.MenuDateLayout))))
}

func (b *Bot) handleMetricsCommand(ctx context.Context, chatID int64) {
	usage, err := b.menus.DailyUsage(ctx, 7)
	if err != nil {
		b.log.Error("Error fetching metrics", zap.Error(err))
		b.send(tgbotapi.NewMessage(chatID, "❌ Error fetching metrics."))
		return
	}
	b.send(markdown(chatID, formatMetrics(usage, metrics.GetSysHealth(b.dataPath))))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Error("Failed to send telegram message", zap.Error(err))
	}
}

func markdown(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}

func activateData(planID int64) string {
	return activateAction + "|" + strconv.FormatInt(planID, 10)
}

func parseActivateData(data string) (int64, bool) {
	action, raw, ok := strings.Cut(data, "|")
	if !ok || action != activateAction {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// nextMonday returns the first Monday strictly after t.
func nextMonday(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Monday) - int(day.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, offset)
}

func formatError(err error) string {
	var coverage *planner.CoverageError
	switch {
	case errors.As(err, &coverage):
		return "🥲 *Not enough recipes*\nNothing can be cooked for: " + escape(strings.Join(coverage.Missing(), ", "))
	case errors.Is(err, planner.ErrNoAvailableIngredients):
		return "🥲 *Your pantry is empty.* Add some ingredients first."
	case errors.Is(err, planner.ErrNoFeasibleRecipes):
		return "🥲 *No recipe can be cooked* with what is in the pantry."
	case errors.Is(err, planner.ErrPlanNotFound):
		return "🤷 *No active menu.* Generate one with /menu and activate it."
	case errors.Is(err, planner.ErrInvalidTransition):
		return "⛔ This menu can no longer be activated."
	default:
		safeErr := strings.ReplaceAll(err.Error(), "`", "'")
		return fmt.Sprintf("❌ *Something went wrong:*\n```\n%v\n```", safeErr)
	}
}

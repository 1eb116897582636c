package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"balanced-meal-planner/internal/app"
	"balanced-meal-planner/internal/config"
	"balanced-meal-planner/internal/metrics"
	"balanced-meal-planner/internal/planner"
	"balanced-meal-planner/internal/recipe"
	"balanced-meal-planner/internal/shopping"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"
)

type fakeSender struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) texts() []string {
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

type fakeMenus struct {
	plan        *planner.MenuPlan
	list        *shopping.ShoppingList
	err         error
	requests    []planner.Request
	activated   []int64
	usageCalled bool
}

func (f *fakeMenus) GenerateMenuPlan(_ context.Context, req planner.Request) (*planner.MenuPlan, *shopping.ShoppingList, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.plan, f.list, nil
}

func (f *fakeMenus) CurrentMenu(_ context.Context, _ string) (*planner.MenuPlan, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.plan, nil
}

func (f *fakeMenus) MenuOn(_ context.Context, _ string, _ time.Time) ([]planner.MenuPlan, error) {
	if f.plan == nil {
		return nil, nil
	}
	return []planner.MenuPlan{*f.plan}, nil
}

func (f *fakeMenus) ActivatePlan(_ context.Context, _ string, id int64) (*planner.MenuPlan, error) {
	f.activated = append(f.activated, id)
	if f.err != nil {
		return nil, f.err
	}
	return f.plan, nil
}

func (f *fakeMenus) ShoppingList(_ context.Context, _ string, _ int64) (*shopping.ShoppingList, error) {
	return f.list, nil
}

func (f *fakeMenus) DailyUsage(_ context.Context, _ int) ([]metrics.DailyUsage, error) {
	f.usageCalled = true
	return []metrics.DailyUsage{{Date: "2025-03-10", Generations: 3, Successes: 2, AverageScore: 81.5, AverageLatencyMS: 12}}, nil
}

func testPlan() *planner.MenuPlan {
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	meal := func(slot string, id int64, name string, kcal int64) planner.Meal {
		return planner.Meal{Slot: slot, Recipe: recipe.Summary{
			ID: id, Name: name, PerServing: recipe.Macros{Calories: decimal.NewFromInt(kcal)},
		}}
	}
	return &planner.MenuPlan{
		ID:        7,
		UserID:    "11",
		StartDate: monday,
		EndDate:   monday.AddDate(0, 0, 1),
		Status:    planner.StatusDraft,
		Days: []planner.DailyMealSlot{
			{DayNumber: 1, Date: monday, TotalCalories: 1050, Meals: []planner.Meal{
				meal("soup", 1, "Lentil Soup", 450),
				meal("main_course", 2, "Mom_s Stew", 600),
			}},
			{DayNumber: 2, Date: monday.AddDate(0, 0, 1), TotalCalories: 500, Meals: []planner.Meal{
				meal("soup", 3, "Tomato Soup", 500),
			}},
		},
		AverageCalories: 775,
		BalanceScore:    82.5,
		IsBalanced:      true,
	}
}

func testList() *shopping.ShoppingList {
	return &shopping.ShoppingList{MenuPlanID: 7, Items: []shopping.Item{
		{IngredientID: 1, Name: "Red Lentils", Quantity: decimal.NewFromInt(250), Unit: "g", Meals: 1},
	}}
}

func newTestBot(t *testing.T, menus *fakeMenus) (*Bot, *fakeSender) {
	t.Helper()
	cfg := &config.Config{TelegramAllowedUserIDs: []int64{11}, AdminTelegramID: 99, MenuLocale: "en"}
	sender := &fakeSender{}
	b := newBot(sender, menus, cfg, zaptest.NewLogger(t), t.TempDir())
	b.now = func() time.Time { return time.Date(2025, 3, 12, 9, 30, 0, 0, time.UTC) }
	return b, sender
}

func command(from int64, text string) tgbotapi.Update {
	cmd, _, _ := strings.Cut(text, " ")
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: from},
		Chat:     &tgbotapi.Chat{ID: from},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func TestFormatMenu(t *testing.T) {
	out := formatMenu(app.Simplify(testPlan(), "en"))

	for _, want := range []string{
		"📅 *Weekly Menu* (10.03.2025 - 11.03.2025)",
		"*Monday* 10.03.2025",
		"• Soup: Lentil Soup (450 kcal)",
		"• Main course: Mom\\_s Stew (600 kcal)",
		"*Tuesday* 11.03.2025",
		"Average: 775 kcal/day",
		"⚖️ Balance score: 82.5",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected menu to contain %q, got:\n%s", want, out)
		}
	}

	t.Run("Turkish", func(t *testing.T) {
		out := formatMenu(app.Simplify(testPlan(), "tr"))
		if !strings.Contains(out, "*Pazartesi* 10.03.2025") || !strings.Contains(out, "• Çorba: Lentil Soup") {
			t.Errorf("Expected Turkish labels, got:\n%s", out)
		}
	})

	t.Run("Unbalanced", func(t *testing.T) {
		plan := testPlan()
		plan.IsBalanced = false
		if out := formatMenu(app.Simplify(plan, "en")); !strings.Contains(out, "⚠️ Balance score") {
			t.Errorf("Expected unbalanced marker, got:\n%s", out)
		}
	})
}

func TestFormatShoppingList(t *testing.T) {
	out := formatShoppingList(testList())
	if !strings.Contains(out, "🛒 *Shopping List*") {
		t.Error("Missing shopping list header")
	}
	if !strings.Contains(out, "• Red Lentils: 250 g") {
		t.Errorf("Missing shopping item, got:\n%s", out)
	}

	if out := formatShoppingList(&shopping.ShoppingList{}); !strings.Contains(out, "_Nothing to buy_") {
		t.Errorf("Expected empty list note, got:\n%s", out)
	}
}

func TestFormatDay(t *testing.T) {
	plans := []planner.MenuPlan{*testPlan()}

	out := formatDay(plans, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), "en")
	if !strings.Contains(out, "Plan #7 (draft)") || !strings.Contains(out, "Tomato Soup") {
		t.Errorf("Expected Tuesday of plan 7, got:\n%s", out)
	}
	if strings.Contains(out, "Lentil Soup") {
		t.Errorf("Expected only Tuesday's meals, got:\n%s", out)
	}

	if out := formatDay(nil, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), "en"); out != "🤷 Nothing planned for 11.03.2025." {
		t.Errorf("Unexpected empty day message %q", out)
	}
}

func TestFormatMetrics(t *testing.T) {
	out := formatMetrics(
		[]metrics.DailyUsage{{Date: "2025-03-10", Generations: 3, Successes: 2, AverageScore: 81.5, AverageLatencyMS: 12}},
		metrics.SysHealth{Alloc: "1.0 MiB", Sys: "8.0 MiB", Goroutines: 4, DataDiskSize: "12 KiB", Uptime: "1m0s"},
	)
	for _, want := range []string{
		"📊 *Usage & Health Report*",
		"• *2025-03-10*: 2/3 ok, score 81.5, 12ms",
		"• RAM: 1.0 MiB (Alloc) / 8.0 MiB (Sys)",
		"• Disk Data: 12 KiB",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected report to contain %q, got:\n%s", want, out)
		}
	}

	if out := formatMetrics(nil, metrics.SysHealth{}); !strings.Contains(out, "_No data yet_") {
		t.Errorf("Expected no-data note, got:\n%s", out)
	}
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"Coverage", &planner.CoverageError{Counts: []planner.SlotCount{{Slot: "breakfast", Count: 0}, {Slot: "dinner", Count: 2}}}, "Nothing can be cooked for: breakfast"},
		{"NoIngredients", planner.ErrNoAvailableIngredients, "pantry is empty"},
		{"NoRecipes", planner.ErrNoFeasibleRecipes, "No recipe can be cooked"},
		{"NoPlan", planner.ErrPlanNotFound, "No active menu"},
		{"Transition", planner.ErrInvalidTransition, "can no longer be activated"},
		{"Other", errors.New("disk `full`"), "disk 'full'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatError(tt.err); !strings.Contains(got, tt.want) {
				t.Errorf("Expected %q in %q", tt.want, got)
			}
		})
	}
}

func TestNextMonday(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), "2025-03-17"},
		{time.Date(2025, 3, 12, 23, 0, 0, 0, time.UTC), "2025-03-17"},
		{time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), "2025-03-17"},
		{time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC), "2025-03-17"},
	}
	for _, tt := range tests {
		if got := nextMonday(tt.in).Format("2006-01-02"); got != tt.want {
			t.Errorf("nextMonday(%s) = %s, want %s", tt.in.Format(time.RFC3339), got, tt.want)
		}
	}
}

func TestParseActivateData(t *testing.T) {
	if id, ok := parseActivateData(activateData(42)); !ok || id != 42 {
		t.Errorf("Expected round trip of plan 42, got %d %v", id, ok)
	}
	for _, data := range []string{"", "activate", "activate|x", "activate|-1", "redo|3"} {
		if _, ok := parseActivateData(data); ok {
			t.Errorf("Expected %q to be rejected", data)
		}
	}
}

func TestBot_MenuCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("DefaultsToNextWeek", func(t *testing.T) {
		menus := &fakeMenus{plan: testPlan(), list: testList()}
		b, sender := newTestBot(t, menus)

		b.handleUpdate(ctx, command(11, "/menu"))

		if len(menus.requests) != 1 {
			t.Fatalf("Expected one generation, got %d", len(menus.requests))
		}
		req := menus.requests[0]
		if req.UserID != "11" || req.StartDate.Format("2006-01-02") != "2025-03-17" {
			t.Errorf("Unexpected request %+v", req)
		}
		if len(sender.sent) != 3 {
			t.Fatalf("Expected status, menu and shopping messages, got %d", len(sender.sent))
		}
		edit, ok := sender.sent[1].(tgbotapi.EditMessageTextConfig)
		if !ok {
			t.Fatalf("Expected the status message to be edited, got %T", sender.sent[1])
		}
		if edit.MessageID != 1 || edit.ReplyMarkup == nil {
			t.Fatalf("Expected edit of message 1 with a keyboard, got %+v", edit)
		}
		button := edit.ReplyMarkup.InlineKeyboard[0][0]
		if button.CallbackData == nil || *button.CallbackData != "activate|7" {
			t.Errorf("Unexpected activate button %+v", button)
		}
		if texts := sender.texts(); !strings.Contains(texts[2], "Red Lentils") {
			t.Errorf("Expected shopping list last, got %q", texts[2])
		}
	})

	t.Run("ExplicitDate", func(t *testing.T) {
		menus := &fakeMenus{plan: testPlan(), list: testList()}
		b, _ := newTestBot(t, menus)

		b.handleUpdate(ctx, command(11, "/menu 12.03.2025"))

		if got := menus.requests[0].StartDate.Format("2006-01-02"); got != "2025-03-12" {
			t.Errorf("Expected start date 2025-03-12, got %s", got)
		}
	})

	t.Run("BadDate", func(t *testing.T) {
		menus := &fakeMenus{}
		b, sender := newTestBot(t, menus)

		b.handleUpdate(ctx, command(11, "/menu someday"))

		if len(menus.requests) != 0 || len(sender.sent) != 1 {
			t.Errorf("Expected a single date hint, got %d requests and %d messages", len(menus.requests), len(sender.sent))
		}
	})

	t.Run("GenerationError", func(t *testing.T) {
		menus := &fakeMenus{err: planner.ErrNoAvailableIngredients}
		b, sender := newTestBot(t, menus)

		b.handleUpdate(ctx, command(11, "/menu"))

		texts := sender.texts()
		if len(texts) != 2 || !strings.Contains(texts[1], "pantry is empty") {
			t.Errorf("Expected the status to become an error, got %q", texts)
		}
	})
}

func TestBot_Commands(t *testing.T) {
	ctx := context.Background()

	t.Run("Unauthorized", func(t *testing.T) {
		menus := &fakeMenus{plan: testPlan()}
		b, sender := newTestBot(t, menus)

		b.handleUpdate(ctx, command(33, "/menu"))

		if len(sender.sent) != 0 || len(menus.requests) != 0 {
			t.Errorf("Expected strangers to be ignored, got %d messages", len(sender.sent))
		}
	})

	t.Run("Current", func(t *testing.T) {
		b, sender := newTestBot(t, &fakeMenus{plan: testPlan()})
		b.handleUpdate(ctx, command(11, "/current"))
		if texts := sender.texts(); len(texts) != 1 || !strings.Contains(texts[0], "Weekly Menu") {
			t.Errorf("Expected the active menu, got %q", texts)
		}
	})

	t.Run("CurrentWithoutPlan", func(t *testing.T) {
		b, sender := newTestBot(t, &fakeMenus{err: planner.ErrPlanNotFound})
		b.handleUpdate(ctx, command(11, "/current"))
		if texts := sender.texts(); len(texts) != 1 || !strings.Contains(texts[0], "No active menu") {
			t.Errorf("Expected no-menu hint, got %q", texts)
		}
	})

	t.Run("Day", func(t *testing.T) {
		b, sender := newTestBot(t, &fakeMenus{plan: testPlan()})
		b.handleUpdate(ctx, command(11, "/day 2025-03-10"))
		if texts := sender.texts(); len(texts) != 1 || !strings.Contains(texts[0], "Lentil Soup") {
			t.Errorf("Expected Monday's meals, got %q", texts)
		}
	})

	t.Run("Shopping", func(t *testing.T) {
		b, sender := newTestBot(t, &fakeMenus{plan: testPlan(), list: testList()})
		b.handleUpdate(ctx, command(11, "/shopping"))
		if texts := sender.texts(); len(texts) != 1 || !strings.Contains(texts[0], "Red Lentils: 250 g") {
			t.Errorf("Expected the shopping list, got %q", texts)
		}
	})

	t.Run("MetricsAdminOnly", func(t *testing.T) {
		menus := &fakeMenus{}
		b, sender := newTestBot(t, menus)
		b.handleUpdate(ctx, command(11, "/metrics"))
		if menus.usageCalled || !strings.Contains(sender.texts()[0], "Access Denied") {
			t.Errorf("Expected non-admins to be denied, got %q", sender.texts())
		}
	})

	t.Run("MetricsForAdmin", func(t *testing.T) {
		menus := &fakeMenus{}
		b, sender := newTestBot(t, menus)
		b.handleUpdate(ctx, command(99, "/metrics"))
		if !menus.usageCalled || !strings.Contains(sender.texts()[0], "2/3 ok") {
			t.Errorf("Expected the usage report, got %q", sender.texts())
		}
	})

	t.Run("Help", func(t *testing.T) {
		b, sender := newTestBot(t, &fakeMenus{})
		b.handleUpdate(ctx, tgbotapi.Update{Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 11}, Chat: &tgbotapi.Chat{ID: 11}, Text: "hello",
		}})
		if texts := sender.texts(); len(texts) != 1 || !strings.Contains(texts[0], "/menu [date]") {
			t.Errorf("Expected help text, got %q", texts)
		}
	})
}

func TestBot_ActivateCallback(t *testing.T) {
	ctx := context.Background()
	callback := func(from int64, data string) tgbotapi.Update {
		return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb-1",
			From:    &tgbotapi.User{ID: from},
			Data:    data,
			Message: &tgbotapi.Message{MessageID: 5, Chat: &tgbotapi.Chat{ID: from}},
		}}
	}

	t.Run("Activates", func(t *testing.T) {
		menus := &fakeMenus{plan: testPlan()}
		b, sender := newTestBot(t, menus)

		b.handleUpdate(ctx, callback(11, "activate|7"))

		if len(menus.activated) != 1 || menus.activated[0] != 7 {
			t.Fatalf("Expected plan 7 to be activated, got %v", menus.activated)
		}
		if len(sender.requests) != 1 {
			t.Errorf("Expected the callback to be answered")
		}
		if _, ok := sender.sent[0].(tgbotapi.EditMessageReplyMarkupConfig); !ok {
			t.Errorf("Expected the keyboard to be removed, got %T", sender.sent[0])
		}
		if texts := sender.texts(); !strings.Contains(texts[0], "Menu activated* (10.03.2025 - 11.03.2025)") {
			t.Errorf("Unexpected confirmation %q", texts)
		}
	})

	t.Run("ArchivedPlan", func(t *testing.T) {
		menus := &fakeMenus{err: planner.ErrInvalidTransition}
		b, sender := newTestBot(t, menus)

		b.handleUpdate(ctx, callback(11, "activate|7"))

		if texts := sender.texts(); len(texts) != 1 || !strings.Contains(texts[0], "can no longer be activated") {
			t.Errorf("Expected transition error, got %q", texts)
		}
	})

	t.Run("Stranger", func(t *testing.T) {
		menus := &fakeMenus{plan: testPlan()}
		b, sender := newTestBot(t, menus)

		b.handleUpdate(ctx, callback(33, "activate|7"))

		if len(menus.activated) != 0 || len(sender.requests) != 0 {
			t.Errorf("Expected strangers to be ignored")
		}
	})
}

func TestWebhookHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	b, _ := newTestBot(t, &fakeMenus{})
	router := gin.New()
	router.POST(WebhookPath, b.WebhookHandler())

	t.Run("BadBody", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader("{"))
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("EmptyUpdate", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(`{"update_id": 1}`))
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
	})
}

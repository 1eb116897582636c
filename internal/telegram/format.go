package telegram

import (
	"fmt"
	"strings"
	"time"

	"balanced-meal-planner/internal/app"
	"balanced-meal-planner/internal/metrics"
	"balanced-meal-planner/internal/planner"
	"balanced-meal-planner/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func formatMenu(menu app.SimpleMenu) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 *Weekly Menu* (%s - %s)\n\n", menu.StartDate, menu.EndDate))
	for _, day := range menu.Days {
		writeDay(&sb, day)
	}
	sb.WriteString(fmt.Sprintf("🔥 Average: %d kcal/day\n", menu.AverageCalories))
	balance := "⚖️"
	if !menu.IsBalanced {
		balance = "⚠️"
	}
	sb.WriteString(fmt.Sprintf("%s Balance score: %.1f\n", balance, menu.BalanceScore))
	return sb.String()
}

func writeDay(sb *strings.Builder, day app.SimpleDay) {
	sb.WriteString(fmt.Sprintf("*%s* %s\n", day.Day, day.Date))
	for _, meal := range day.Meals {
		sb.WriteString(fmt.Sprintf("• %s: %s (%d kcal)\n", meal.Label, escape(meal.Recipe), meal.Calories))
	}
	sb.WriteString("\n")
}

func formatDay(plans []planner.MenuPlan, day time.Time, locale string) string {
	date := day.Format(app.MenuDateLayout)
	if len(plans) == 0 {
		return fmt.Sprintf("🤷 Nothing planned for %s.", date)
	}
	var sb strings.Builder
	for _, plan := range plans {
		menu := app.Simplify(&plan, locale)
		for _, d := range menu.Days {
			if d.Date != date {
				continue
			}
			sb.WriteString(fmt.Sprintf("🗓 Plan #%d (%s)\n", menu.PlanID, strings.ToLower(menu.Status)))
			writeDay(&sb, d)
		}
	}
	return sb.String()
}

func formatShoppingList(list *shopping.ShoppingList) string {
	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n\n")
	if list == nil || len(list.Items) == 0 {
		sb.WriteString("_Nothing to buy_\n")
		return sb.String()
	}
	for _, line := range list.Lines() {
		sb.WriteString(fmt.Sprintf("• %s\n", escape(line)))
	}
	return sb.String()
}

func formatMetrics(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")
	sb.WriteString("🗓 *Recent Generations*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d/%d ok, score %.1f, %dms\n",
			d.Date, d.Successes, d.Generations, d.AverageScore, d.AverageLatencyMS))
	}
	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %s (Alloc) / %s (Sys)\n", health.Alloc, health.Sys))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	return sb.String()
}

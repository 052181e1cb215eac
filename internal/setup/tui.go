// Package setup holds the terminal front end: the credential prompt and the
// portfolio summary printed after each refresh.
package setup

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/events"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	warning   = lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#FF5F5F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(0, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1)

	mutedStyle = lipgloss.NewStyle().Foreground(subtle)
	errorStyle = lipgloss.NewStyle().Foreground(warning).Bold(true)
	totalStyle = lipgloss.NewStyle().Foreground(special).Bold(true)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(highlight).Padding(0, 1)
)

// PromptCredentials asks for the Binance API key and secret on the terminal.
// The secret is never echoed.
func PromptCredentials() (domain.Credentials, error) {
	var apiKey, apiSecret string

	fmt.Println(headerStyle.Render("FOLIO"))
	fmt.Println(mutedStyle.Render("Read-only API keys are enough. The secret stays on this machine."))
	fmt.Println(stepStyle.Render("BINANCE CREDENTIALS"))

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API Key").
				Value(&apiKey).
				Validate(requireValue("API key")),
			huh.NewInput().
				Title("API Secret").
				Value(&apiSecret).
				EchoMode(huh.EchoModePassword).
				Validate(requireValue("API secret")),
		),
	).Run()
	if err != nil {
		return domain.Credentials{}, err
	}

	return domain.Credentials{APIKey: strings.TrimSpace(apiKey), APISecret: strings.TrimSpace(apiSecret)}, nil
}

func requireValue(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
		return nil
	}
}

// RenderPortfolio formats an update as a terminal summary.
func RenderPortfolio(u events.PortfolioUpdate) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("FOLIO " + strings.ToUpper(u.Status.State.String())))
	b.WriteString("\n")

	if u.Status.Error != "" {
		b.WriteString(errorStyle.Render(u.Status.Error))
		b.WriteString("\n")
	}

	if u.Portfolio.Empty() {
		b.WriteString(mutedStyle.Render("No holdings worth at least 1 USDT."))
		b.WriteString("\n")
	} else {
		rows := make([]string, 0, len(u.Portfolio.Assets)+1)
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("%-8s %18s %14s %8s  %s", "COIN", "AMOUNT", "VALUE", "ALLOC", "SOURCE")))
		for i, a := range u.Portfolio.Assets {
			coin := lipgloss.NewStyle().Foreground(lipgloss.Color(a.Color)).Bold(true).Render(fmt.Sprintf("%-8s", a.Coin))
			rows = append(rows, fmt.Sprintf("%s %18s %14s %7.2f%%  %s",
				coin, formatAmount(a.Amount), formatUSDT(a.Value), u.Portfolio.Allocation(i), a.PriceSource))
		}
		b.WriteString(boxStyle.Render(strings.Join(rows, "\n")))
		b.WriteString("\n")
		b.WriteString(totalStyle.Render("Total: " + formatUSDT(u.Portfolio.TotalValue) + " USDT"))
		b.WriteString("\n")
	}

	if line := topPricesLine(u.TopPrices); line != "" {
		b.WriteString(mutedStyle.Render(line))
		b.WriteString("\n")
	}
	if !u.Status.LastUpdated.IsZero() {
		b.WriteString(mutedStyle.Render("Updated " + u.Status.LastUpdated.Format("15:04:05")))
		b.WriteString("\n")
	}

	return b.String()
}

// Watch prints every update received on updates until ctx is done or the channel closes.
func Watch(ctx context.Context, updates <-chan events.PortfolioUpdate, w io.Writer) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			fmt.Fprintln(w, RenderPortfolio(u))
		}
	}
}

func topPricesLine(prices domain.PriceMap) string {
	if len(prices) == 0 {
		return ""
	}
	symbols := make([]string, 0, len(prices))
	for s := range prices {
		symbols = append(symbols, s)
	}
	slices.Sort(symbols)

	parts := make([]string, len(symbols))
	for i, s := range symbols {
		parts[i] = fmt.Sprintf("%s %s", strings.TrimSuffix(s, domain.QuoteAsset), formatUSDT(prices[s]))
	}
	return strings.Join(parts, " | ")
}

func formatUSDT(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func formatAmount(v float64) string {
	s := fmt.Sprintf("%.8f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

package render

import "github.com/trebuchet-org/nftwallet/internal/usecase"

// Renderer writes one use case result to the terminal or as JSON
type Renderer[T any] interface {
	Render(result T) error
}

var (
	_ Renderer[*usecase.PredictAccountResult] = (*PredictRenderer)(nil)
	_ Renderer[*usecase.RunScenarioResult]    = (*ScenarioRenderer)(nil)
	_ Renderer[*usecase.AccountListResult]    = (*AccountsRenderer)(nil)
	_ Renderer[*usecase.CheckAccountsResult]  = (*StatusRenderer)(nil)
	_ Renderer[*usecase.ShowConfigResult]     = (*ConfigRenderer)(nil)
)

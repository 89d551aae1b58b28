package tool

import "github.com/finvisor/finvisor/core"

// Handler is the invocation handle an external collaborator supplies when
// binding a catalog entry to a live backend.
type Handler func(toolCtx *core.ToolContext, args map[string]any) (any, error)

// DefaultCatalog returns the declared capability surface of the financial
// assistant: account data fetches, market research, web search and portfolio
// analysis. Only names, categories and schemas are declared here; callers
// bind the entries to live backends via Bind.
func DefaultCatalog() []core.ToolDescriptor {
	emptyObject := map[string]any{"type": "object", "properties": map[string]any{}}
	return []core.ToolDescriptor{
		{
			Name:           "fetch_net_worth",
			Description:    "Calculate comprehensive net worth using actual data from connected accounts, including assets and liabilities.",
			Category:       core.CategoryFinancialData,
			Parameters:     emptyObject,
			Parallelizable: true,
			RequiresAuth:   true,
		},
		{
			Name:           "fetch_credit_report",
			Description:    "Retrieve comprehensive credit report information, including credit scores and loan details.",
			Category:       core.CategoryFinancialData,
			Parameters:     emptyObject,
			Parallelizable: true,
			RequiresAuth:   true,
		},
		{
			Name:           "fetch_epf_details",
			Description:    "Access Employee Provident Fund (EPF) account information, including balance and contributions.",
			Category:       core.CategoryFinancialData,
			Parameters:     emptyObject,
			Parallelizable: true,
			RequiresAuth:   true,
		},
		{
			Name:           "fetch_mf_transactions",
			Description:    "Retrieve mutual funds transaction history for portfolio analysis.",
			Category:       core.CategoryPortfolioAnalysis,
			Parameters:     emptyObject,
			Parallelizable: true,
			RequiresAuth:   true,
		},
		{
			Name:        "web_search",
			Description: "Search the web for current market information, news and real-time data.",
			Category:    core.CategoryWebSearch,
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Search query for current information.",
					},
				},
				"required": []string{"query"},
			},
			Parallelizable: true,
		},
		{
			Name:        "stock_symbol_search",
			Description: "Find ticker symbols for a company name before running stock analysis.",
			Category:    core.CategoryMarketAnalysis,
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"company_name": map[string]any{"type": "string"},
					"market":       map[string]any{"type": "string"},
				},
				"required": []string{"company_name"},
			},
			Parallelizable: true,
		},
		{
			Name:        "stock_analysis",
			Description: "Analyze one or more known ticker symbols for performance, valuation and trends.",
			Category:    core.CategoryMarketAnalysis,
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"symbols":       map[string]any{"type": "array"},
					"analysis_type": map[string]any{"type": "string"},
					"period":        map[string]any{"type": "string"},
				},
				"required": []string{"symbols"},
			},
			Parallelizable: true,
		},
		{
			Name:        "mutual_fund_analysis",
			Description: "Research and analyze mutual funds by code or search term.",
			Category:    core.CategoryPortfolioAnalysis,
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"action":      map[string]any{"type": "string"},
					"fund_codes":  map[string]any{"type": "array"},
					"search_term": map[string]any{"type": "string"},
				},
			},
			Parallelizable: true,
		},
	}
}

// Bind turns a catalog descriptor plus an invocation handle into a
// registered tool.
func Bind(r *Registry, desc core.ToolDescriptor, h Handler) {
	var opts []FunctionToolOption
	if !desc.Parallelizable {
		opts = append(opts, WithSerialExecution())
	}
	if desc.RequiresAuth {
		opts = append(opts, WithAuthRequired())
	}
	r.Register(NewFunctionTool(desc.Name, desc.Category, desc.Description, desc.Parameters, h, opts...))
}

// BindCatalog binds every catalog entry to handles supplied by name. Entries
// without a handle are skipped, so callers can wire a subset.
func BindCatalog(r *Registry, handlers map[string]Handler) {
	for _, desc := range DefaultCatalog() {
		if h, ok := handlers[desc.Name]; ok {
			Bind(r, desc, h)
		}
	}
}

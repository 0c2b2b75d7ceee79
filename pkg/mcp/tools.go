package mcp

import "github.com/mark3labs/mcp-go/mcp"

// ToolDefinition names one tool for help output.
type ToolDefinition struct {
	Name        string
	Description string
}

// RegisteredTools lists the tools NewServer registers.
func RegisteredTools() []ToolDefinition {
	tools := []mcp.Tool{
		listCategoriesTool(),
		listProductsTool(),
		getProductTool(),
		getCategoryTool(),
		featuredProductsTool(),
	}
	defs := make([]ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = ToolDefinition{Name: t.Name, Description: t.Description}
	}
	return defs
}

func listCategoriesTool() mcp.Tool {
	return mcp.NewTool("list_categories",
		mcp.WithDescription("List product categories with the number of products in each."),
	)
}

func listProductsTool() mcp.Tool {
	return mcp.NewTool("list_products",
		mcp.WithDescription("List catalog products one page at a time, optionally filtered by category and keyword. "+
			"Out-of-range pages are clamped; the response reports the page actually returned."),
		mcp.WithString("category", mcp.Description("Category slug, e.g. \"weighbridges\". Omit for all categories.")),
		mcp.WithString("q", mcp.Description("Case-insensitive keyword matched against name, description and applications.")),
		mcp.WithNumber("page", mcp.Description("1-based page number. Default 1.")),
		mcp.WithNumber("page_size", mcp.Description("Products per page. Default is the site page size.")),
	)
}

func getProductTool() mcp.Tool {
	return mcp.NewTool("get_product",
		mcp.WithDescription("Get one product by slug, with its category, page links and related products."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Product slug, e.g. \"gold-scale\".")),
	)
}

func getCategoryTool() mcp.Tool {
	return mcp.NewTool("get_category",
		mcp.WithDescription("Get one category by slug with all of its products."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Category slug, e.g. \"industrial-scales\".")),
	)
}

func featuredProductsTool() mcp.Tool {
	return mcp.NewTool("featured_products",
		mcp.WithDescription("List the products featured on the home page."),
	)
}

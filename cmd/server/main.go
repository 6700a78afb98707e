package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"calltree2dot/internal/analyzer"
	"calltree2dot/internal/calltree"
	"calltree2dot/internal/convert"
	"calltree2dot/internal/logging"
	"calltree2dot/internal/policy"
)

// callTreeCache holds the call trees loaded through load_calltree
type callTreeCache struct {
	mu      sync.RWMutex
	entries map[string][]*calltree.Entry
}

func (c *callTreeCache) get(filePath string) ([]*calltree.Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries, ok := c.entries[filePath]
	return entries, ok
}

func (c *callTreeCache) put(filePath string, entries []*calltree.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[filePath] = entries
}

type handlers struct {
	cache  *callTreeCache
	logger *zap.Logger
}

func newHandlers(logger *zap.Logger) *handlers {
	return &handlers{
		cache:  &callTreeCache{entries: make(map[string][]*calltree.Entry)},
		logger: logger,
	}
}

// policyFor builds the policy for a request: optional policy file, then optional module override.
func policyFor(request mcp.CallToolRequest) (*policy.Policy, error) {
	p := policy.Default()
	if path := request.GetString("policy_path", ""); path != "" {
		var err error
		if p, err = policy.Load(path); err != nil {
			return nil, err
		}
	}
	if modules := request.GetString("modules", ""); modules != "" {
		var list []string
		for _, m := range strings.Split(modules, ",") {
			if m = strings.TrimSpace(m); m != "" {
				list = append(list, m)
			}
		}
		if len(list) > 0 {
			p = p.WithModules(list)
		}
	}
	return p, nil
}

func (h *handlers) loaded(request mcp.CallToolRequest) ([]*calltree.Entry, *mcp.CallToolResult) {
	filePath, err := request.RequireString("file_path")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	entries, ok := h.cache.get(filePath)
	if !ok {
		return nil, mcp.NewToolResultError("Call tree not loaded. Use load_calltree tool first")
	}
	return entries, nil
}

func (h *handlers) loadCallTree(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath, err := request.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entries, err := calltree.ReadFile(filePath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load call tree: %v", err)), nil
	}
	h.cache.put(filePath, entries)
	h.logger.Info("Loaded call tree", zap.String("path", filePath), zap.Int("rows", len(entries)))

	maxLevel := 0
	modules := make(map[string]bool)
	for _, e := range entries {
		maxLevel = max(maxLevel, e.Level)
		modules[e.Module] = true
	}

	result := fmt.Sprintf(`Call tree loaded successfully!

File: %s
Rows: %d
Deepest level: %d
Modules: %d

Use other tools to analyze this call tree.
`,
		filePath,
		len(entries),
		maxLevel,
		len(modules),
	)

	return mcp.NewToolResultText(result), nil
}

func (h *handlers) convertCallTree(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath, err := request.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	p, err := policyFor(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := convert.ConvertFile(filePath, p, h.logger)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Conversion failed (discard %s): %v", convert.OutputPath(filePath), err)), nil
	}

	var sb strings.Builder
	sb.WriteString("CALL GRAPH WRITTEN\n")
	sb.WriteString("═══════════════════════════════════════════════════\n\n")
	sb.WriteString(fmt.Sprintf("Output: %s\n", res.OutputPath))
	sb.WriteString(fmt.Sprintf("Rows read: %d (deepest level %d)\n", res.Rows, res.MaxLevel))
	sb.WriteString(fmt.Sprintf("Nodes: %d\n", res.Nodes))
	sb.WriteString(fmt.Sprintf("Edges: %d\n\n", res.Edges))
	sb.WriteString(fmt.Sprintf("Chains: %d processed, %d rendered, %d cut at ignored frames\n",
		res.Chains, res.RenderedChains, res.AbortedChains))
	sb.WriteString(fmt.Sprintf("Elided frames: %d\n\n", res.ElidedFrames))
	sb.WriteString(fmt.Sprintf("Render with: dot -Tsvg -o %s.svg %s\n", res.OutputPath, res.OutputPath))

	return mcp.NewToolResultText(sb.String()), nil
}

func (h *handlers) findHotspots(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, errResult := h.loaded(request)
	if errResult != nil {
		return errResult, nil
	}

	topN := int(request.GetFloat("top_n", 10.0))
	hotspots := analyzer.FindHotspots(entries, topN)

	var sb strings.Builder
	sb.WriteString("🔥 TOP HOTSPOTS (Functions With Most Exclusive Samples)\n")
	sb.WriteString("═══════════════════════════════════════════════════\n\n")

	if len(hotspots) == 0 {
		sb.WriteString("No hotspots found.\n")
	} else {
		for i, hs := range hotspots {
			sb.WriteString(analyzer.FormatHotspot(hs, i+1))
			sb.WriteString("\n")
		}
	}

	return mcp.NewToolResultText(sb.String()), nil
}

func (h *handlers) analyzeModules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, errResult := h.loaded(request)
	if errResult != nil {
		return errResult, nil
	}

	modules := analyzer.FindModuleHotspots(entries)

	var sb strings.Builder
	sb.WriteString("📦 MODULE TIME ANALYSIS\n")
	sb.WriteString("═══════════════════════════════════════════════════\n\n")

	for i, m := range modules {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, m.Module))
		sb.WriteString(fmt.Sprintf("   Exclusive samples: %d (%.2f%%)\n", m.Samples, m.Percentage))

		barLength := min(int(m.Percentage/2), 50)
		sb.WriteString("   ")
		sb.WriteString(strings.Repeat("█", barLength))
		sb.WriteString("\n\n")
	}

	return mcp.NewToolResultText(sb.String()), nil
}

func (h *handlers) getStatistics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, errResult := h.loaded(request)
	if errResult != nil {
		return errResult, nil
	}

	p, err := policyFor(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stats := analyzer.ComputeStatistics(entries, p)

	var sb strings.Builder
	sb.WriteString("📊 CALL TREE STATISTICS\n")
	sb.WriteString("═══════════════════════════════════════════════════\n\n")

	sb.WriteString(fmt.Sprintf("Total Rows: %d\n", stats.TotalRows))
	sb.WriteString(fmt.Sprintf("Total Exclusive Samples: %d\n\n", stats.TotalSamples))

	sb.WriteString("Depth Statistics:\n")
	sb.WriteString(fmt.Sprintf("  Average: %.2f\n", stats.AverageLevel))
	sb.WriteString(fmt.Sprintf("  Maximum: %d\n\n", stats.MaxLevel))

	sb.WriteString("Unique Elements:\n")
	sb.WriteString(fmt.Sprintf("  Modules: %d\n", stats.UniqueModules))
	sb.WriteString(fmt.Sprintf("  Functions: %d\n\n", stats.UniqueFunctions))

	sb.WriteString("Policy:\n")
	sb.WriteString(fmt.Sprintf("  Watched modules: %s\n", strings.Join(p.Modules(), ", ")))
	sb.WriteString(fmt.Sprintf("  Rows in watched modules: %d (%.2f%% of exclusive samples)\n", stats.InterestingRows, stats.InterestingShare))
	sb.WriteString(fmt.Sprintf("  Rows matching ignore rules: %d\n", stats.IgnoredRows))

	return mcp.NewToolResultText(sb.String()), nil
}

func main() {
	logger, err := logging.NewLogger("info")
	if err != nil {
		log.Fatalf("Logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	h := newHandlers(logger)

	// Create MCP server
	s := server.NewMCPServer(
		"calltree2dot",
		"1.0.0",
		server.WithLogging(),
	)

	// Tool 1: Load Call Tree
	s.AddTool(mcp.NewTool("load_calltree",
		mcp.WithDescription("Load a call-tree CSV export (optionally .zst compressed) for analysis"),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Absolute path to the call-tree CSV file"),
		),
	), h.loadCallTree)

	// Tool 2: Convert to dot
	s.AddTool(mcp.NewTool("convert_calltree",
		mcp.WithDescription("Reconstruct the call graph of a call-tree CSV export and write it as <file_path>.dot for Graphviz. Uninteresting library frames are collapsed."),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Absolute path to the call-tree CSV file"),
		),
		mcp.WithString("modules",
			mcp.Description("Comma separated list of watched modules (default: built-in watch list)"),
		),
		mcp.WithString("policy_path",
			mcp.Description("Path to a YAML policy file with modules, ignores and ignore_prefixes"),
		),
	), h.convertCallTree)

	// Tool 3: Find Hotspots
	s.AddTool(mcp.NewTool("find_hotspots",
		mcp.WithDescription("Find the functions with the most exclusive samples in a loaded call tree."),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Path to the loaded call-tree file"),
		),
		mcp.WithNumber("top_n",
			mcp.Description("Number of top hotspots to return (default: 10)"),
		),
	), h.findHotspots)

	// Tool 4: Analyze Modules
	s.AddTool(mcp.NewTool("analyze_modules",
		mcp.WithDescription("Analyze exclusive samples per module/DLL in a loaded call tree."),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Path to the loaded call-tree file"),
		),
	), h.analyzeModules)

	// Tool 5: Get Statistics
	s.AddTool(mcp.NewTool("get_statistics",
		mcp.WithDescription("Get statistics about a loaded call tree: rows, depth, unique modules/functions and how much of it the watch list covers."),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Path to the loaded call-tree file"),
		),
		mcp.WithString("modules",
			mcp.Description("Comma separated list of watched modules (default: built-in watch list)"),
		),
		mcp.WithString("policy_path",
			mcp.Description("Path to a YAML policy file with modules, ignores and ignore_prefixes"),
		),
	), h.getStatistics)

	// Start the server
	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

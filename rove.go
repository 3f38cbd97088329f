// Package rove is a small agent-orchestration library: it drives an LLM
// through multi-step reasoning loops to accomplish a task, optionally
// invoking tools and optionally planning before executing.
//
// The root package holds the contracts: [Message]/[History] for transcripts,
// [Client] for the model boundary, [Tool]/[Registry] for capabilities, and
// [Agent]/[Result]/[Config] for the run contract. Strategies live under
// agents/: react (reason-act-observe), plansolve (plan-then-execute), and
// reflection (execute-reflect-refine).
//
// # Quick Start
//
//	client, err := models.NewOpenAI(models.OpenAIConfig{
//	    Model:   os.Getenv("LLM_MODEL_ID"),
//	    APIKey:  os.Getenv("LLM_API_KEY"),
//	    BaseURL: os.Getenv("LLM_BASE_URL"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	search := rove.NewToolFunc(
//	    "search",
//	    "Search the web for current information.",
//	    schema.Object(map[string]*schema.Property{
//	        "query": schema.String("The search query."),
//	    }, "query"),
//	    func(ctx context.Context, args map[string]string) (string, error) {
//	        return doSearch(ctx, args["query"])
//	    },
//	)
//
//	agent := react.New(client).
//	    RegisterTool(search).
//	    WithConfig(rove.DefaultConfig())
//
//	result, err := agent.Run(ctx, "What is the weather in Tokyo?")
//	if err != nil {
//	    // The partial transcript is still available in result.History.
//	    log.Fatal(err)
//	}
//	fmt.Println(result.FinalAnswer)
//
// # Concurrency
//
// Agents execute single-threaded: plan steps run strictly sequentially
// because step i+1's prompt depends on step i's result, and the only
// blocking points are LLM and tool calls. Callers wanting non-blocking
// behavior wrap Run in their own goroutine. One Agent instance must not
// serve concurrent runs; stateless mode (the default) makes sequential
// reuse safe.
package rove

// Package unifiedllm is the provider-agnostic LLM client used by the agent
// runner. It wraps gollm (github.com/teilomillet/gollm) behind a small
// ProviderAdapter interface so that the agent loop can stream text deltas
// and collect tool calls without knowing which provider serves the model.
//
// # Layers
//
//   - ProviderAdapter: one backend (GollmAdapter, or a test fake).
//   - Client: routes requests by provider name and applies stream middleware.
//   - Retry / RetryPolicy: exponential backoff for retryable errors.
//   - StreamAccumulator: folds StreamEvents back into a Response.
//
// # Usage
//
//	adapter, _ := unifiedllm.NewGollmAdapter("openai", os.Getenv("OPENAI_API_KEY"))
//	client := unifiedllm.NewClient(unifiedllm.WithProvider("openai", adapter))
//
//	events, _ := client.Stream(ctx, unifiedllm.Request{
//	    Model:    "gpt-4o-mini",
//	    Messages: []unifiedllm.Message{unifiedllm.UserMessage("Hello")},
//	})
//	acc := unifiedllm.NewStreamAccumulator()
//	for ev := range events {
//	    acc.Process(ev)
//	}
//	fmt.Println(acc.Response().Text())
//
// Errors returned by adapters belong to a small hierarchy rooted at SDKError.
// IsRetryable tells the retry loop what to do with them and ErrorCode gives
// a short stable code for diagnostics.
package unifiedllm

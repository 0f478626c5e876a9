// Package streamjson provides incremental parsing of streaming, possibly
// incomplete JSON text arriving in arbitrary-sized chunks, emitting
// field-level delta and completion events as structure becomes available.
//
// The package is built for LLM token streams and similar sources where a
// JSON document materializes gradually: chunks are accumulated in a
// balance-tracking buffer, parsed best-effort (with lenient fallback and
// bracket/quote repair), structurally diffed against the previous snapshot,
// filtered by field-path patterns, and surfaced as immutable events.
//
// # Basic Usage
//
//	parser, err := streamjson.New(streamjson.DefaultConfig())
//	defer parser.Close()
//
//	sessionID, err := parser.CreateSession("")
//	events, err := parser.ParseChunk(ctx, sessionID, `{"users": [`)
//	events, err = parser.ParseChunk(ctx, sessionID, `{"name": "Alice"}]}`)
//	final, err := parser.FinalizeSession(ctx, sessionID)
//
// Consumers may instead register typed callbacks:
//
//	parser.AddEventCallback(streamjson.EventDelta, func(ev streamjson.Event) {
//		fmt.Printf("%s += %v\n", ev.Path, ev.Delta)
//	})
//
// # Field Filtering
//
// A FieldFilter restricts which paths produce events:
//
//	filter, err := streamjson.NewFieldFilter(streamjson.FilterConfig{
//		Enabled:      true,
//		Mode:         streamjson.FilterInclude,
//		IncludePaths: []string{"users", "users.*"},
//		ExcludePaths: []string{"*.password"},
//	})
//
// Paths use dotted notation for object keys and bracketed zero-based
// indices for arrays: "users[0].name".
//
// # Concurrency
//
// A single session must be driven sequentially; distinct sessions are
// independent and may be processed concurrently. Each Parser instance owns
// its own session map and caches, so multiple instances can coexist in one
// process without shared state.
//
// # Error Handling
//
// Per-chunk content failures never tear down a session: they are counted
// in the session stats and surfaced as ERROR events. Construction and
// argument errors fail fast as *StreamError values wrapping sentinel errors
// such as ErrSessionNotFound, ErrBufferOverflow, and ErrInvalidFilter.
package streamjson

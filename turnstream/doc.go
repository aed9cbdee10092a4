// Package turnstream implements the event stream of a single agent turn and
// the fold that turns it into rendered text plus an outcome.
//
// A turn produces an ordered sequence of Events (text chunks, tool calls,
// tool results, stream errors). The producer writes them through an Emitter;
// the interactive loop drains the matching Stream with an Accumulator, which
// echoes text as it arrives and records whether a tool was invoked and
// whether anything failed. Diagnose then picks the post-turn diagnostic.
//
//	stream, emitter := turnstream.NewStream(0)
//	go func() {
//	    defer emitter.Close(nil)
//	    emitter.Emit(ctx, turnstream.TextChunk{Content: "Hello"})
//	}()
//
//	acc := turnstream.NewAccumulator(os.Stdout)
//	acc.Drain(stream)
//	if d := acc.Diagnose(); d != turnstream.DiagnosticNone {
//	    log.Println(d.Message())
//	}
package turnstream

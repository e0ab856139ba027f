// Package pctx creates the contexts used throughout hadoop-galaxy.
//
// A context is where the logger lives.  A binary calls Background once, at the top of main, and
// derives everything else from the result.  Long-running pieces get a named child:
//
//	go runTask(pctx.Child(ctx, "task", pctx.WithFields(log.TaskIndex(i))))
//
// Names concatenate with dots, so a log line from a worker task inside the fan-out coordinator shows
// up as "galaxy.fanout.task".  Use oneCamelCaseWord for names, and let the parent name the child.
package pctx

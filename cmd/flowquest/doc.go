// Package main hosts the flowquest CLI entrypoint and command graph.
//
// The Cobra-based command tree drives the quest lifecycle end to end:
// planning a quest from a template, answering checkpoints with incremental
// re-renders, inspecting the preview playlist, verifying answers, and
// exporting artifacts with a bound receipt. Configuration resolution and
// logging setup are centralized so subcommands stay declarative; the heavy
// lifting lives in the internal packages.
package main

// Package workflow classifies incoming messages into one of the five
// workflow types and produces an executable plan for the turn.
//
// Classification is a deterministic keyword heuristic; plan construction
// is model-assisted. Planning is strictly separated from execution: the
// selector names every tool the plan intends to call but never invokes
// one.
package workflow

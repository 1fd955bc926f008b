// Package chart loads a Helm chart from disk, walks every manifest
// template through the ast/ir pipeline, synthesizes a values schema per
// spec.md §4.5 via the synth package, and composes subchart schemas in
// per spec.md §4.6.
package chart

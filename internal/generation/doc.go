// Package generation defines the boundary between the pipeline and the
// language model that writes book summaries. It holds the Summarizer
// interface, the sources of system instructions and the rendering of the
// user prompt, so that the LLM adapter in platform/gemini stays swappable.
package generation

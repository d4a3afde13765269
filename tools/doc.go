// Package tools defines the Tool interface for LLM agents, along with the registry that advertises tool schemas to the model and the executor that runs batches of tool calls. Tools enable agents to interact with external systems and APIs in a structured, extensible way.
package tools

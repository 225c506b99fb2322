// Package model holds the data shapes passed between nodes and the NetSendo API.
package model

// Item is one JSON record flowing through a workflow.
type Item = map[string]any

// Items is an ordered batch of records.
type Items = []Item

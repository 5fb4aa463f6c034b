package types

// JSONMap is a free-form JSON object stored in a jsonb column.
type JSONMap map[string]any

package anthropic

// BuildCachedSystemBlocks constructs a system prompt with an ephemeral cache
// breakpoint. Stage prompts are identical across runs, so batch runs hit the
// warm cache after the first company.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	return []SystemBlock{
		{
			Text:         text,
			CacheControl: &CacheControl{TTL: "5m"},
		},
	}
}

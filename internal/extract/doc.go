package extract

// Package extract implements the extraction capability consumed by the
// queue: given a fully-resolved download spec and a context, fetch the
// content and return the output path. Implementations handle their own
// transient-failure retries and stall detection; the queue does not retry.

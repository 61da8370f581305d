package domain

// KeyPrefix namespaces every storage key the service writes.
const KeyPrefix = "tunex:"

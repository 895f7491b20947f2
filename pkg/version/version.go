package version

// Version is the application version reported by /api/version and the CLI.
const Version = "v0.3.1"

package ir

// Version is the reposync release version.
const Version = "0.1.0"

// Package providers implements the authenticated HTTP client used to read
// resource metadata from the Oracle Cloud Infrastructure control plane.
//
// # Overview
//
// HTTPProvider issues JSON requests against the regional service endpoints.
// Every attempt is signed by a Signer (an OCI SDK request signer in
// production, NoopSigner against local test servers), carries an
// opc-request-id shared by all retries of the same call, and is subject to
// the configured per-attempt timeout.
//
// # Retries
//
// Network errors, attempt timeouts, 429 and 5xx responses are retried with
// full-jitter exponential backoff (github.com/cenkalti/backoff/v5). Other
// 4xx responses and signing failures fail immediately. The defaults match the
// original deployment: 3 attempts, at most 3s between attempts.
//
// # Credentials
//
// LoadCredentials reads an OCI CLI config file or falls back to instance
// principals. CredentialWatcher reloads the config file when it changes and
// SignerReloader installs the new signer without restarting the pipeline:
//
//	creds, err := providers.LoadCredentials(providers.CredentialsConfig{}, logger)
//	if err != nil {
//	    return err
//	}
//	client := providers.NewHTTPProvider(providers.ProviderConfig{Name: "oci"}, creds.Signer)
//	watcher := providers.NewCredentialWatcher(creds.ConfigPath, 0,
//	    providers.SignerReloader(client, providers.CredentialsConfig{}, logger), logger)
//	go watcher.Run(ctx)
//
// # Errors
//
// Failures are reported with the typed errors in errors.go. ErrorType maps
// them to the labels used by the provider metrics, and IsNotFound detects a
// resource that no longer exists.
//
// # Health
//
// The provider marks itself unhealthy after UnhealthyAfter consecutive
// failures that concern the control plane itself (network, timeouts, 5xx,
// authentication). 4xx answers about individual resources do not count.
package providers

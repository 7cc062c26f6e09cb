/*

Package appshell serves the build artifacts of a "Single Page Application"
(SPA) with client-side DOM routing: static assets, a liveness check, and the
application's entry document as the fallback for any other route. This way,
bookmarked deep links and reloads on routes other than "/" still reach the SPA.

Routing is an ordered list of Route values, each pairing a request predicate
with a Responder that may pass on requests it cannot serve:

  - assets: GET and HEAD requests for file-like paths ("*.*") get the
    matching regular file from the asset root; missing files pass on.
  - healthz: "/healthz" answers "OK" for any method.
  - entry: everything else gets the entry document, as read from disk.

A Server is created using New from a Config, usually derived from the
environment using ConfigFromEnv. There is no package-level server state, so
tests and embedding applications can run as many independent Servers as they
like.

Faults escaping request handling end up in a FaultSink, which logs them with
an incident ID; request-scoped faults answer 500 and leave the process
running.

*/
package appshell

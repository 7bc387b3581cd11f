// Package rest exposes a gateway.Gateway over HTTP.
//
// Every table in the database is reachable without per-table code:
//
//	Method | Path                 | Body on success
//	-------|----------------------|------------------------------------------
//	GET    | /tables              | {"tables": ["users", ...]}
//	GET    | /tables/{name}       | {"<name>": [{"id": 1, ...}, ...]}
//	POST   | /tables/{name}       | {"message": "Data inserted successfully"}
//	PUT    | /tables/{name}/{id}  | {"message": "Record updated successfully"}
//	DELETE | /tables/{name}/{id}  | {"message": "Record deleted successfully"}
//	GET    | /healthz             | {"status": "ok"}
//
// Failures are {"error": "..."}. By default both outcomes use status 200;
// Options.StatusCodes switches to 201/400/404/500/503.
//
// Example usage:
//
//	r := httputil.NewRouter()
//	r.Use(middleware.RequestID, middleware.LoggerWithOptions(nil))
//	rest.NewServer(gateway.New(provider, logger), rest.Options{}).Register(r)
//	log.Fatal(r.ListenAndServe(":5000"))
package rest

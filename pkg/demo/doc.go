// Package demo drives guards with the workloads and HTTP services of the
// classic flow-control demos.
//
// Background workloads, run by Runner:
//
//   - function_workers: worker i loops on outbound function_i, each entry
//     sleeping (i+1)*10ms
//   - custom_resource: loops on inbound custom-defined-resource with nested
//     doSomething and doAnotherThing entries
//   - user_requester: calls UserService.GetUserByID (resource getUserById)
//     with increasing ids; blocked calls return the fallback user
//
// HTTP services, mounted with RegisterRoutes:
//
//	GET /sayHello           "Hello provider "
//	GET /sayHi              "Hi provider <name>"
//	GET /consumer/sayHello  inbound sayHello, calls the provider through
//	                        outbound provider:/sayHello
//	GET /sentinel_cloud     inbound sentinel_cloud, "Hello Sentinel"
//
// A blocked inbound entry answers "system busy, please try again later"; a
// blocked or failed provider call answers "provider unavailable".
//
// Every workload shares one guard, so the reporter's per-second line covers
// all of them.
package demo

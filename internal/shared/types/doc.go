// Package types provides shared data structures for the launcher backend.
//
// Core Types:
//   - Item: the record carried by every node of the launcher tree
//   - ItemType: discriminator (root, home-root, all-apps-root, page, icon, folder, widget)
//   - Geometry: grid placement for widgets and folders
//   - AppInfo: an installed application as reported by the app catalog
//
// Request Types:
//   - MoveRequest, FolderRequest, BadgeRequest, ...: HTTP request bodies
//   - Event: outbound message pushed to stream clients
//
// Example Usage:
//
//	item := types.NewIcon(types.AppInfo{
//	    AppID: "org.example.mail",
//	    Label: "Mail",
//	})
package types

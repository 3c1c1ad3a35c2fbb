package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/geocapsule/internal/client/models"
	"github.com/dmitrijs2005/geocapsule/internal/client/services"
	"github.com/dmitrijs2005/geocapsule/internal/common"
)

func (a *App) register(ctx context.Context) {
	account, err := a.readLine("Login: ")
	if err != nil {
		return
	}
	password, err := a.readPassword("Password: ")
	if err != nil {
		return
	}
	if err := a.authService.Register(ctx, account, password); err != nil {
		fmt.Println("Registration failed:", err)
		return
	}
	fmt.Println("Registered. Now login.")
}

func (a *App) login(ctx context.Context) {
	account, err := a.readLine("Login: ")
	if err != nil {
		return
	}
	password, err := a.readPassword("Password: ")
	if err != nil {
		return
	}
	if err := a.authService.Login(ctx, account, password); err != nil {
		fmt.Println("Login failed:", err)
		return
	}
	a.account = account
	fmt.Println("Logged in.")
}

func (a *App) logout(ctx context.Context) {
	if a.account == "" {
		return
	}
	_ = a.authService.Logout(ctx, a.account)
	a.account = ""
	fmt.Println("Logged out.")
}

func (a *App) requireLogin() bool {
	if !a.isLoggedIn() {
		fmt.Println("Please login first.")
		return false
	}
	return true
}

func (a *App) add(ctx context.Context) {
	if !a.requireLogin() {
		return
	}
	name, err := a.readLine("Name: ")
	if err != nil {
		return
	}
	lat, err := a.readFloat("Latitude: ")
	if err != nil {
		fmt.Println("Invalid latitude")
		return
	}
	lng, err := a.readFloat("Longitude: ")
	if err != nil {
		fmt.Println("Invalid longitude")
		return
	}

	id, err := a.capsuleService.Add(ctx, a.account, models.CapsuleFields{Name: name, Lat: lat, Lng: lng})
	if err != nil {
		fmt.Println("Error adding capsule:", err)
		return
	}
	fmt.Printf("Added capsule #%d (will sync on next pass)\n", id)
}

func (a *App) list(ctx context.Context) {
	if !a.requireLogin() {
		return
	}
	rows, err := a.capsuleService.ListOwned(ctx, a.account)
	if err != nil {
		fmt.Println("Error listing capsules:", err)
		return
	}
	if len(rows) == 0 {
		fmt.Println("No capsules yet.")
		return
	}
	for _, row := range rows {
		status := "synced"
		if row.Dirty {
			status = "pending"
		}
		fmt.Printf("#%d  %-20s  (%.5f, %.5f)  sync_id=%d  [%s]\n",
			row.CapsuleID, row.Name, row.Lat, row.Lng, row.SyncID, status)
	}
}

func (a *App) rename(ctx context.Context, args []string) {
	if !a.requireLogin() {
		return
	}
	if len(args) < 1 {
		fmt.Println("Usage: name <capsule-id>")
		return
	}
	id, err := parseID(args[0])
	if err != nil {
		fmt.Println("Invalid capsule id")
		return
	}
	name, err := a.readLine("New name: ")
	if err != nil {
		return
	}
	ok, err := a.capsuleService.Rename(ctx, id, name)
	if err != nil {
		fmt.Println("Error renaming capsule:", err)
		return
	}
	if !ok {
		fmt.Println("No such capsule.")
		return
	}
	fmt.Println("Renamed.")
}

func (a *App) discover(ctx context.Context) {
	if !a.requireLogin() {
		return
	}
	syncIDLine, err := a.readLine("Capsule sync id: ")
	if err != nil {
		return
	}
	syncID, err := parseID(syncIDLine)
	if err != nil {
		fmt.Println("Invalid sync id")
		return
	}
	name, err := a.readLine("Name: ")
	if err != nil {
		return
	}
	lat, err := a.readFloat("Latitude: ")
	if err != nil {
		fmt.Println("Invalid latitude")
		return
	}
	lng, err := a.readFloat("Longitude: ")
	if err != nil {
		fmt.Println("Invalid longitude")
		return
	}

	id, err := a.capsuleService.Discover(ctx, a.account, models.CapsuleFields{Name: name, Lat: lat, Lng: lng}, syncID)
	if errors.Is(err, common.ErrDuplicateRecord) {
		fmt.Println("Already discovered.")
		return
	}
	if err != nil {
		fmt.Println("Error recording discovery:", err)
		return
	}
	fmt.Printf("Discovery recorded for capsule #%d\n", id)
}

func (a *App) favorite(ctx context.Context, args []string) {
	if !a.requireLogin() {
		return
	}
	if len(args) < 1 {
		fmt.Println("Usage: fav <capsule-id> [off]")
		return
	}
	id, err := parseID(args[0])
	if err != nil {
		fmt.Println("Invalid capsule id")
		return
	}
	fav := !(len(args) > 1 && args[1] == "off")
	ok, err := a.capsuleService.SetFavorite(ctx, id, a.account, fav)
	if err != nil {
		fmt.Println("Error updating favorite:", err)
		return
	}
	if !ok {
		fmt.Println("No discovery for that capsule.")
		return
	}
	fmt.Println("Updated.")
}

func (a *App) rate(ctx context.Context, args []string) {
	if !a.requireLogin() {
		return
	}
	if len(args) < 2 {
		fmt.Println("Usage: rate <capsule-id> up|down|neutral")
		return
	}
	id, err := parseID(args[0])
	if err != nil {
		fmt.Println("Invalid capsule id")
		return
	}
	var rating models.Rating
	switch args[1] {
	case "up":
		rating = models.RatingUp
	case "down":
		rating = models.RatingDown
	case "neutral":
		rating = models.RatingNeutral
	default:
		fmt.Println("Usage: rate <capsule-id> up|down|neutral")
		return
	}
	ok, err := a.capsuleService.Rate(ctx, id, a.account, rating)
	if err != nil {
		fmt.Println("Error updating rating:", err)
		return
	}
	if !ok {
		fmt.Println("No discovery for that capsule.")
		return
	}
	fmt.Println("Updated.")
}

func (a *App) delete(ctx context.Context, args []string) {
	if !a.requireLogin() {
		return
	}
	if len(args) < 1 {
		fmt.Println("Usage: delete <ownership-id>")
		return
	}
	id, err := parseID(args[0])
	if err != nil {
		fmt.Println("Invalid ownership id")
		return
	}
	ok, err := a.capsuleService.Delete(ctx, id)
	if err != nil {
		fmt.Println("Error deleting capsule:", err)
		return
	}
	if !ok {
		fmt.Println("No such ownership.")
		return
	}
	fmt.Println("Marked for deletion; will be removed on next sync.")
}

func (a *App) sync(ctx context.Context) {
	if !a.requireLogin() {
		return
	}
	res, err := a.syncEngine.Sync(ctx, a.account)
	if errors.Is(err, services.ErrSyncInProgress) {
		fmt.Println("Sync already running.")
		return
	}
	if err != nil {
		fmt.Println("Sync failed:", err)
		return
	}
	mode := "push"
	if res.FullReconcile {
		mode = "full reconcile"
	}
	fmt.Printf("Sync (%s): pushed=%d deleted=%d applied=%d removed=%d failed=%d\n",
		mode, res.Pushed, res.Deleted, res.Applied, res.Removed, res.Failed)
	if !res.CtagAdvanced {
		fmt.Println("Some rows failed; they stay pending for the next sync.")
	}
}

package auth

import (
	"fmt"
	"strings"
)

// ShowTokenGuide displays step-by-step instructions for obtaining a
// Graph API access token
func ShowTokenGuide() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("📚 GRAPH API ACCESS TOKEN GUIDE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	fmt.Println("This tool needs a Graph API access token tied to your Instagram")
	fmt.Println("professional account. Follow these steps to obtain one:")
	fmt.Println()

	fmt.Println("🏗  STEP 1: Create a Meta app")
	fmt.Println("   - Go to https://developers.facebook.com/apps")
	fmt.Println("   - Create an app (type: Business)")
	fmt.Println("   - Note the App ID and App Secret from Settings → Basic")
	fmt.Println()

	fmt.Println("🔗 STEP 2: Connect your Instagram account")
	fmt.Println("   - Your Instagram account must be Professional (Business or Creator)")
	fmt.Println("   - Link it to a Facebook Page you manage")
	fmt.Println("   - In the app dashboard, add the 'Instagram Graph API' product")
	fmt.Println()

	fmt.Println("🔑 STEP 3: Generate a user token")
	fmt.Println("   - Open https://developers.facebook.com/tools/explorer")
	fmt.Println("   - Select your app, then 'Get User Access Token'")
	fmt.Println("   - Grant these permissions:")
	fmt.Println("     • instagram_basic")
	fmt.Println("     • pages_show_list")
	fmt.Println("     • pages_read_engagement")
	fmt.Println()

	fmt.Println("🆔 STEP 4: Find your Instagram user id")
	fmt.Println("   - In the Explorer, query:  me/accounts?fields=instagram_business_account")
	fmt.Println("   - The number under instagram_business_account.id is your user id")
	fmt.Println()

	fmt.Println("⏳ STEP 5: Exchange for a long-lived token (recommended)")
	fmt.Println("   - Short-lived tokens expire after about an hour")
	fmt.Println("   - Run:  instarchiver auth exchange --app-id <id> --app-secret <secret>")
	fmt.Println("   - Long-lived tokens last about 60 days")
	fmt.Println()

	fmt.Println("💡 TIPS:")
	fmt.Println("   • Copy the ENTIRE token, it is several hundred characters long")
	fmt.Println("   • Store it with 'instarchiver auth login' so you never paste it twice")
	fmt.Println("   • Set IG_USER_ID and IG_ACCESS_TOKEN instead for one-off runs")
	fmt.Println()

	fmt.Println("⚠️  SECURITY WARNING:")
	fmt.Println("   • The token grants read access to your account's media")
	fmt.Println("   • NEVER share it or commit it to a repository")
	fmt.Println("   • This tool keeps it in the system keychain or an encrypted file")
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
}

// ShowQuickTokenGuide shows a condensed version for experienced users
func ShowQuickTokenGuide() {
	fmt.Println("\n🔑 Quick Guide: developers.facebook.com/tools/explorer → Get User Access Token")
	fmt.Println("   Need: instagram_basic scope, the instagram_business_account id, then 'auth exchange'")
	fmt.Println("   Run 'instarchiver auth login' for the full walkthrough")
}

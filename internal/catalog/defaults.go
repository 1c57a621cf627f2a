package catalog

var defaultGroups = []struct {
	id    GroupID
	label string
	items []string
}{
	{CerealPackages, "Cereal Packs", []string{
		"Backup Max",
		"Backup",
		"Mid Meal",
		"Backup Max Chripsy PC",
		"Monster Meal",
		"Backup Chrispy Meal",
		"Backup Max Cubes",
		"Mid Chrispy Meal",
		"R & B",
		"Fried Rice",
		"8PC Meal",
		"10PC Meal",
		"Backup Cubes Meal",
		"Pasta",
		"Crew Meal",
		"Mid",
		"Mid Chrispy",
		"1/4 Rot Lite Meal",
		"4PC Love Meal",
		"Lovers Cube Meal",
		"Face-up Meal",
		"Plain Rice",
		"Face-up",
		"Jollof Rice",
		"Love Meal",
		"PC Mixed Rice and Drink",
		"1/4 Rot Mixed Rice and Drink",
		"1/4 Rot Mixed Rice",
		"PC Mixed Rice",
		"Max Jollof Rice",
		"Max Fried Rice",
		"1/4 Rot Meal",
		"1/2 Rot Meal",
	}},
	{ChickenPackages, "Chicken Packs", []string{
		"8PC Chripsy",
		"1PC",
		"1/4 Rot",
		"2PC Chrispy",
		"Rot",
		"4PC Chrispy",
		"1PC Chrispy",
		"8PC Chrispy",
		"4PC",
		"2PC",
		"1PC Rot",
		"4PC Rot",
		"8PC Rot",
		"2PC Rot",
		"1/2 Rot",
	}},
	{CallToOrder, "Call To Order", []string{
		"Cubes",
		"270g Chips",
		"Burger",
		"SW",
		"1/4 Rot Chips",
		"Sharwama",
		"Max SW Meal",
		"Burger Meal",
		"Shawama Meal",
		"Max SW",
		"Express Meal",
		"Express Chripsy Meal",
		"180g Chips",
		"SW Meal",
		"Express",
		"1/2 Rot Chips",
		"Express Chripsy",
		"Max Spicy SW",
		"Spicy SW",
		"Max Spicy SW Meal",
		"Spicy SW Meal",
		"Mid Chips Meal",
		"Mid Chips",
		"Mid Chrispy Chips Meal",
		"200g Cubes",
	}},
	{Others, "Others", []string{
		"50cl Drink",
		"Veg Salad",
		"Chicken Pie",
		"Meat Pie",
		"Moin Moin",
		"Chicken Salad Meal",
		"Salad",
		"Chicken Salad",
		"Monster",
		"75cl Water",
		"R & B Sauce",
		"Cheese",
		"Coffee",
		"Plastic Pack",
		"60cl Zero",
		"200g Salad",
		"200g Veg Salad",
		"Ketchup",
		"350ml Cup",
		"250ml Cup",
		"Cone",
	}},
}

package speckable

import "wholesale-backend/lib/scrapers"

// Hand-curated snapshot of the top-level taxonomy. The homepage is
// large and slow to pull through the relay and the tree changes rarely,
// so the root level is served from here; subcategories are discovered
// lazily from listing responses.
var staticCategories = []scrapers.Category{
	{Name: "Narzędzia ręczne", Slug: "/pl/list/narzedzia-reczne"},
	{Name: "Elektronarzędzia", Slug: "/pl/list/elektronarzedzia"},
	{Name: "Instalacje i hydraulika", Slug: "/pl/list/instalacje-hydraulika"},
	{Name: "Elektryka i oświetlenie", Slug: "/pl/list/elektryka-oswietlenie"},
	{Name: "Budowa i remont", Slug: "/pl/list/budowa-remont"},
	{Name: "Chemia techniczna", Slug: "/pl/list/chemia-techniczna"},
	{Name: "Złącza i mocowania", Slug: "/pl/list/zlacza-mocowania"},
	{Name: "BHP i odzież robocza", Slug: "/pl/list/bhp-odziez"},
	{Name: "Ogród i zieleń", Slug: "/pl/list/ogrod-zielen"},
	{Name: "Wyposażenie warsztatu", Slug: "/pl/list/wyposazenie-warsztatu"},
}

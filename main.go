package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/luminagems/shopbackend/lib/mypublisher"
	"github.com/luminagems/shopbackend/lib/mypubsub"
	"github.com/luminagems/shopbackend/lib/myqueue"
	"github.com/luminagems/shopbackend/lib/mystore"
	"github.com/luminagems/shopbackend/lib/mytime"
	"github.com/luminagems/shopbackend/lib/myuuid"
	"github.com/luminagems/shopbackend/services/cart"
	"github.com/luminagems/shopbackend/services/catalog"
	"github.com/luminagems/shopbackend/services/checkout"
	"github.com/luminagems/shopbackend/services/identity"
	"github.com/luminagems/shopbackend/services/order"
	"github.com/luminagems/shopbackend/services/payment"
)

func main() {
	c := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %s", err)
	}

	nower := mytime.RealNower{}
	uuider := myuuid.RealUUIDer{}

	pubsubClient, pubsubCleanup, err := mypubsub.New(c)
	if err != nil {
		log.Fatalf("Error creating pubsub client: %s", err)
	}
	defer pubsubCleanup()

	queue, queueCleanup, err := myqueue.New(c)
	if err != nil {
		log.Fatalf("Error creating task queue: %s", err)
	}
	defer queueCleanup()

	publisher, publisherCleanup, err := mypublisher.New(c, pubsubClient, queue, nower)
	if err != nil {
		log.Fatalf("Error creating event publisher: %s", err)
	}
	defer publisherCleanup()

	sessionStore, sessionStoreCleanup, err := mystore.New[identity.Session](c)
	if err != nil {
		log.Fatalf("Error creating session store: %s", err)
	}
	defer sessionStoreCleanup()

	catalogStore, catalogStoreCleanup, err := mystore.New[catalog.Diamond](c)
	if err != nil {
		log.Fatalf("Error creating catalog store: %s", err)
	}
	defer catalogStoreCleanup()

	cartStore, cartStoreCleanup, err := mystore.New[cart.Cart](c)
	if err != nil {
		log.Fatalf("Error creating cart store: %s", err)
	}
	defer cartStoreCleanup()

	orderStore, orderStoreCleanup, err := mystore.New[order.Order](c)
	if err != nil {
		log.Fatalf("Error creating order store: %s", err)
	}
	defer orderStoreCleanup()

	paymentStore, paymentStoreCleanup, err := mystore.New[payment.Payment](c)
	if err != nil {
		log.Fatalf("Error creating payment store: %s", err)
	}
	defer paymentStoreCleanup()

	if cfg.SeedDemoData {
		err = seedDemoData(c, cfg, sessionStore, catalogStore, nower)
		if err != nil {
			log.Fatalf("Error seeding demo data: %s", err)
		}
	}

	resolver := identity.NewResolver(identity.NewVerifier(sessionStore, nower))

	router := mux.NewRouter()
	publisher.RegisterEndpoints(c, router)

	catalogService := catalog.NewWebService(catalogStore, nower, pubsubClient, resolver, cfg.Currency)
	err = catalogService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering catalog endpoints: %s", err)
	}

	cartService := cart.NewWebService(cartStore, catalogService.Catalog(), nower, uuider, pubsubClient, resolver, cfg.GuestCookieTTL)
	err = cartService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering cart endpoints: %s", err)
	}

	orderService := order.NewWebService(orderStore, nower, pubsubClient, resolver)
	err = orderService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering order endpoints: %s", err)
	}

	checkoutService := checkout.NewWebService(cartStore, orderStore, catalogService.Catalog(), publisher, nower, uuider, resolver)
	err = checkoutService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering checkout endpoints: %s", err)
	}

	paymentService := payment.NewWebService(paymentStore, orderService.Orders(), publisher, nower, uuider, resolver, cfg.TaxRatePercent, cfg.ShippingFeeCents)
	err = paymentService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering payment endpoints: %s", err)
	}

	startWebServerBlocking(router, cfg.Port)
}

// seedDemoData fills the local fake stores with a browsable catalog and two
// ready-made sessions, so the API can be explored without an auth service.
func seedDemoData(c context.Context, cfg Config, sessionStore mystore.Store[identity.Session], catalogStore mystore.Store[catalog.Diamond], nower mytime.Nower) error {
	now := nower.Now()

	sessions := []identity.Session{
		{Token: "demo-shopper", AccountUID: "shopper-1", CreatedAt: now},
		{Token: "demo-admin", AccountUID: "admin-1", Admin: true, CreatedAt: now},
	}
	for _, session := range sessions {
		err := sessionStore.Put(c, session.Token, session)
		if err != nil {
			return err
		}
	}

	diamonds := []catalog.Diamond{
		{UID: "dia-round-102", Description: "Round brilliant 1.02ct D VS1", CaratWeight: 1.02, Color: "D", Clarity: "VS1", PriceInCents: 1250000, Currency: cfg.Currency, Available: true, CreatedAt: now},
		{UID: "dia-princess-071", Description: "Princess cut 0.71ct F VS2", CaratWeight: 0.71, Color: "F", Clarity: "VS2", PriceInCents: 480000, Currency: cfg.Currency, Available: true, CreatedAt: now},
		{UID: "dia-oval-201", Description: "Oval 2.01ct E VVS2", CaratWeight: 2.01, Color: "E", Clarity: "VVS2", PriceInCents: 4200000, Currency: cfg.Currency, Available: true, CreatedAt: now},
	}
	for _, diamond := range diamonds {
		err := catalogStore.Put(c, diamond.UID, diamond)
		if err != nil {
			return err
		}
	}

	log.Printf("Seeded %d demo sessions and %d catalog items", len(sessions), len(diamonds))

	return nil
}

func startWebServerBlocking(router *mux.Router, port int) {
	log.Printf("Starting webserver on port %d (try http://localhost:%d)", port, port)
	err := http.ListenAndServe(fmt.Sprintf(":%d", port), router)
	if err != nil {
		log.Fatalf("Error starting webserver on port %d: %s", port, err)
	}
}
